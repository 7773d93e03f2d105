package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PACSamericana/poly/internal/server"
	"github.com/PACSamericana/poly/internal/store"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report API over HTTP",
	Long: `Serve exposes report generation over HTTP:
  POST /api/reports        generate and save a report
  GET  /api/reports/{id}   fetch a saved report (?format=markdown)
  GET  /api/catalog        list the section catalog
  GET  /healthz            liveness and model reachability

Example:
  poly serve --addr :8080
  POLY_STORE_DRIVER=postgres POLY_STORE_DSN=postgres://... poly serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
	serveCmd.Flags().StringVar(&outputDir, "out-dir", "", "directory for saved reports with the file store (default: output.dir)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir := outputDir
	if dir == "" {
		dir = a.cfg.Output.Dir
	}
	st, err := store.Open(ctx, a.cfg.Store, dir)
	if err != nil {
		return err
	}
	defer st.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	srv := server.New(a.catalog, a.pipeline, st,
		server.WithLogger(a.logger.Named("server")),
		server.WithPinger(a.gateway),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Serving on %s (model %s/%s, store %s)\n", addr, a.cfg.LLM.Provider, a.cfg.LLM.Model, a.cfg.Store.Driver)
	if err := srv.Run(ctx, addr); err != nil {
		a.logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
