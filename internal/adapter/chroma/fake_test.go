package chroma

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"amplie/internal/domain"
)

const (
	tenantPrefix = "/api/v2/tenants/default_tenant/databases/default_database/"
	legacyPrefix = "/api/v2/"
	v1Prefix     = "/api/v1/"
)

// fakeChroma is an in-memory Chroma server that only answers under the
// prefixes accept allows.
type fakeChroma struct {
	mu sync.Mutex

	accept           func(prefix, method string) bool
	bareLists        bool
	ignoreNameFilter bool
	noAdd            bool
	noUpsert         bool
	conflictOnCreate bool
	createNoID       bool
	queryResponse    string

	collections []domain.Collection
	creates     int
	conflicts   int
	written     map[string][]string // collection id -> ids
	lastAdd     addRequest
	lastQuery   queryRequest
	requests    []string
	headers     []http.Header
}

func newFakeChroma(accept ...string) *fakeChroma {
	f := &fakeChroma{written: map[string][]string{}}
	f.accept = func(prefix, _ string) bool {
		if len(accept) == 0 {
			return true
		}
		for _, a := range accept {
			if a == prefix {
				return true
			}
		}
		return false
	}
	return f
}

func (f *fakeChroma) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeChroma) addCollection(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections = append(f.collections, domain.Collection{ID: id, Name: name})
}

func (f *fakeChroma) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeChroma) headerLog() []http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]http.Header(nil), f.headers...)
}

func (f *fakeChroma) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *fakeChroma) conflictCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conflicts
}

func (f *fakeChroma) writtenIDs(collectionID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written[collectionID]...)
}

func (f *fakeChroma) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func (f *fakeChroma) lastAddRequest() addRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAdd
}

func (f *fakeChroma) lastQueryRequest() queryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func (f *fakeChroma) resetLog() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

func splitPrefix(path string) (string, string) {
	for _, p := range []string{tenantPrefix, v1Prefix, legacyPrefix} {
		if strings.HasPrefix(path, p) {
			return p, strings.TrimPrefix(path, p)
		}
	}
	return "", path
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.headers = append(f.headers, r.Header.Clone())

	prefix, rest := splitPrefix(r.URL.Path)
	if prefix == "" || !f.accept(prefix, r.Method) {
		http.NotFound(w, r)
		return
	}

	switch {
	case rest == "heartbeat" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"nanosecond heartbeat": 1})

	case rest == "collections" && r.Method == http.MethodGet:
		var out []domain.Collection
		name := r.URL.Query().Get("name")
		for _, c := range f.collections {
			if name == "" || f.ignoreNameFilter || c.Name == name {
				out = append(out, c)
			}
		}
		if out == nil {
			out = []domain.Collection{}
		}
		if f.bareLists {
			writeJSON(w, http.StatusOK, out)
		} else {
			writeJSON(w, http.StatusOK, map[string]any{"collections": out})
		}

	case rest == "collections" && r.Method == http.MethodPost:
		var req createCollectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if f.conflictOnCreate {
			f.collections = append(f.collections, domain.Collection{ID: "raced", Name: req.Name})
			f.conflicts++
			http.Error(w, "exists", http.StatusConflict)
			return
		}
		for _, c := range f.collections {
			if c.Name == req.Name {
				f.conflicts++
				http.Error(w, "exists", http.StatusConflict)
				return
			}
		}
		f.creates++
		col := domain.Collection{ID: fmt.Sprintf("col-%d", f.creates), Name: req.Name}
		f.collections = append(f.collections, col)
		if f.createNoID {
			writeJSON(w, http.StatusOK, map[string]any{"name": req.Name})
			return
		}
		writeJSON(w, http.StatusOK, col)

	case strings.HasPrefix(rest, "collections/") && r.Method == http.MethodPost:
		parts := strings.Split(strings.TrimPrefix(rest, "collections/"), "/")
		if len(parts) != 2 || !f.hasCollection(parts[0]) {
			http.NotFound(w, r)
			return
		}
		switch parts[1] {
		case "add", "upsert":
			if (parts[1] == "add" && f.noAdd) || (parts[1] == "upsert" && f.noUpsert) {
				http.NotFound(w, r)
				return
			}
			var req addRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.lastAdd = req
			f.written[parts[0]] = append(f.written[parts[0]], req.IDs...)
			writeJSON(w, http.StatusCreated, true)
		case "query":
			var req queryRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.lastQuery = req
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(f.queryResponse))
		default:
			http.NotFound(w, r)
		}

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *fakeChroma) hasCollection(id string) bool {
	for _, c := range f.collections {
		if c.ID == id {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{BaseURL: srv.URL, Timeout: 2 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func countWithPrefix(reqs []string, prefix string) int {
	n := 0
	for _, r := range reqs {
		if strings.HasPrefix(strings.SplitN(r, " ", 2)[1], prefix) {
			n++
		}
	}
	return n
}

func seedItems() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: "t1", Title: "Dance Floor", Artist: "A", Policy: domain.Policy{Tempo: 128, Energy: 0.85, Valence: 0.9, Genres: []string{"pop", "edm"}}},
		{ID: "t2", Title: "Rainy Keys", Artist: "B", Policy: domain.Policy{Tempo: 70, Energy: 0.3, Valence: 0.2, Genres: []string{"ambient", "piano"}}},
	}
}
