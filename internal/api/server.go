package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"amplie/internal/adapter/chroma"
	"amplie/internal/domain"
	"amplie/internal/usecase"
)

// Pinger reports whether the vector store is reachable.
type Pinger interface {
	Heartbeat(ctx context.Context) error
}

// Server exposes retrieval and embedding over HTTP.
type Server struct {
	echo     *echo.Echo
	retrieve *usecase.RetrieveUseCase
	embed    *usecase.EmbedUseCase
	pinger   Pinger
	logger   *slog.Logger
}

func NewServer(retrieve *usecase.RetrieveUseCase, embed *usecase.EmbedUseCase, pinger Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		echo:     echo.New(),
		retrieve: retrieve,
		embed:    embed,
		pinger:   pinger,
		logger:   logger,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.POST("/embed", s.handleEmbed)
	s.echo.POST("/retrieve", s.handleRetrieve)
	s.echo.POST("/policy", s.handlePolicy)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type policyBody struct {
	Tempo   *float64 `json:"tempo"`
	Energy  *float64 `json:"energy"`
	Valence *float64 `json:"valence"`
	Genres  []string `json:"genres"`
}

func (b *policyBody) toPolicy() (domain.Policy, bool) {
	if b == nil || b.Tempo == nil || b.Energy == nil || b.Valence == nil || b.Genres == nil {
		return domain.Policy{}, false
	}
	return domain.Policy{Tempo: *b.Tempo, Energy: *b.Energy, Valence: *b.Valence, Genres: b.Genres}, true
}

type retrieveRequest struct {
	Policy *policyBody `json:"policy"`
	K      *int        `json:"k"`
}

type policyRequest struct {
	Emotion string `json:"emotion"`
	Mode    string `json:"mode"`
}

// match mirrors domain.Match with a nullable distance: JSON has no +Inf.
type match struct {
	ID       string         `json:"id"`
	Distance *float64       `json:"distance"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func toMatches(in []domain.Match) []match {
	out := make([]match, len(in))
	for i, m := range in {
		out[i] = match{ID: m.ID, Metadata: m.Metadata}
		if !math.IsInf(m.Distance, 0) && !math.IsNaN(m.Distance) {
			d := m.Distance
			out[i].Distance = &d
		}
	}
	return out
}

func (s *Server) handleHealth(c echo.Context) error {
	if s.pinger == nil {
		return c.JSON(http.StatusOK, map[string]any{"ok": true})
	}
	if err := s.pinger.Heartbeat(c.Request().Context()); err != nil {
		s.logger.Warn("vector store heartbeat failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"ok": false, "chroma": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "chroma": "ok"})
}

func (s *Server) handleEmbed(c echo.Context) error {
	res, err := s.embed.Embed(c.Request().Context(), usecase.EmbedOptions{Force: true})
	if err != nil {
		return s.fail(c, "embed failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"ok":         true,
		"collection": res.Collection.Name,
		"count":      res.Written,
	})
}

func (s *Server) handleRetrieve(c echo.Context) error {
	var req retrieveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	policy, ok := req.Policy.toPolicy()
	if !ok {
		return badRequest(c, "policy requires tempo, energy, valence and genres")
	}

	k := 0
	if req.K != nil {
		if *req.K < 1 {
			return badRequest(c, "k must be at least 1")
		}
		k = *req.K
	}

	items, err := s.retrieve.Retrieve(c.Request().Context(), policy, k)
	if err != nil {
		return s.fail(c, "retrieve failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": toMatches(items)})
}

func (s *Server) handlePolicy(c echo.Context) error {
	var req policyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if req.Emotion == "" {
		return badRequest(c, "emotion is required")
	}
	if req.Mode != "" && req.Mode != "major" && req.Mode != "minor" {
		return badRequest(c, "mode must be major or minor")
	}

	policy, err := s.retrieve.Policy(c.Request().Context(), req.Emotion, req.Mode)
	if err != nil {
		return s.fail(c, "policy lookup failed", err)
	}
	return c.JSON(http.StatusOK, policy)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: msg})
}

// fail maps use case errors onto HTTP responses. Upstream statuses other
// than shape mismatches are passed through.
func (s *Server) fail(c echo.Context, msg string, err error) error {
	s.logger.Error(msg, "path", c.Path(), "error", err)

	switch {
	case errors.Is(err, domain.ErrInvalidK):
		return badRequest(c, err.Error())
	case chroma.IsTimeout(err):
		return c.JSON(http.StatusGatewayTimeout, errorResponse{Error: "UpstreamTimeout", Message: err.Error()})
	}

	status := http.StatusBadGateway
	if st := chroma.StatusOf(err); st >= 400 && !chroma.IsShapeMismatch(err) {
		status = st
	}
	return c.JSON(status, errorResponse{Error: "UpstreamFailure", Message: err.Error()})
}
