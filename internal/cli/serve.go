package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"amplie/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve POST /embed, POST /retrieve, POST /policy and GET /healthz.

Examples:
  amplie serve
  amplie serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := GetConfig().Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	st, err := openCatalog()
	if err != nil {
		return err
	}
	defer st.Close()

	backend, err := newBackend()
	if err != nil {
		return err
	}
	store := newVectorStore(backend)
	srv := api.NewServer(newRetrieveUseCase(store), newEmbedUseCase(store, st), backend, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
