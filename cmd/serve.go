package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for uploaded spreadsheets",
	Long: "Accepts one spreadsheet per period over multipart upload, keeps each analysis in memory " +
		"keyed by upload content, and serves rankings, breakdowns, reports and exports as JSON or files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		opts, err := pipelineOptions(cfg, time.Now())
		if err != nil {
			return err
		}
		if cfg.Periods.ReferenceDate == "" {
			// Age each upload against its own request date.
			opts.Today = time.Time{}
		}

		s := newServer(opts, fetchOptions(cfg, opts.Schema),
			time.Duration(cfg.Server.CacheTTLMinutes)*time.Minute, cfg.Server.MaxUploadMB).
			withUploadLimit(cfg.Server.UploadsPerMinute)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(s),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("directory_version", opts.Directory.Version()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
