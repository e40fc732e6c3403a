package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"amplie/config"
	"amplie/internal/adapter/chroma"
	"amplie/internal/adapter/policy"
)

var emotions = []struct{ emotion, mode string }{
	{"happy", "major"},
	{"sad", "minor"},
	{"angry", "minor"},
	{"relaxed", "major"},
	{"hopeful", "major"},
	{"tired", "minor"},
}

func main() {
	dir := flag.String("dir", ".", "Directory holding amplie.yaml")
	topK := flag.Int("k", 5, "Number of results per query")
	rounds := flag.Int("n", 3, "Queries per emotion")
	flag.Parse()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ccfg, err := cfg.ChromaClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	client, err := chroma.New(ccfg, chroma.WithLogger(cfg.Logging.NewLogger(os.Stderr)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating client: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := client.Heartbeat(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Chroma not reachable: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Server:     %s\n", ccfg.BaseURL)
	fmt.Printf("Collection: %s\n", cfg.Chroma.Collection)
	fmt.Printf("Top-k:      %d, rounds: %d\n\n", *topK, *rounds)

	var total time.Duration
	var queries, failures int
	for _, e := range emotions {
		p := policy.Lookup(e.emotion, e.mode)

		var best time.Duration = math.MaxInt64
		var nearest string
		var nearestDist float64
		for i := 0; i < *rounds; i++ {
			start := time.Now()
			matches, err := client.Query(ctx, cfg.Chroma.Collection, p, *topK)
			elapsed := time.Since(start)
			queries++
			total += elapsed
			if err != nil {
				failures++
				fmt.Printf("  %-8s error: %v\n", e.emotion, err)
				continue
			}
			best = min(best, elapsed)
			if len(matches) > 0 {
				nearest, nearestDist = matches[0].ID, matches[0].Distance
			}
		}

		if nearest == "" {
			fmt.Printf("%-8s %-5s  no results\n", e.emotion, e.mode)
			continue
		}
		fmt.Printf("%-8s %-5s  best %6s  nearest %-20s (distance %.4f)\n", e.emotion, e.mode, best.Round(time.Millisecond), nearest, nearestDist)
	}

	fmt.Println(strings.Repeat("=", 70))
	if queries > 0 {
		fmt.Printf("Queries: %d, failures: %d, mean latency: %s\n", queries, failures, (total / time.Duration(queries)).Round(time.Millisecond))
	}
	if shape, ok := client.PinnedShape(); ok {
		fmt.Printf("Pinned API shape: %s\n", shape)
	} else {
		fmt.Println("API shape not pinned (queries never pin, run 'amplie embed' first)")
	}
}
