package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/awaistahir/offgrid/internal/config"
	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/awaistahir/offgrid/internal/store"
	"github.com/awaistahir/offgrid/internal/uiapi"
	"github.com/awaistahir/offgrid/internal/weather"
	"github.com/spf13/cobra"
)

func main() {
	var port int
	var dbPath string
	var cfgFile string
	var siteCurve bool

	rootCmd := &cobra.Command{
		Use:          "offgridd",
		Short:        "Offgrid HTTP API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			slog.SetDefault(logger)

			v := config.New(cfgFile)
			if err := config.Read(v); err != nil {
				return err
			}
			cfg, err := config.Engine(v)
			if err != nil {
				return err
			}

			// Set default db path
			if dbPath == "" {
				dbPath = filepath.Join(config.Dir(), "offgrid.db")
			}
			if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
				return err
			}

			st, err := store.NewStore(dbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			curve := engine.ReferenceCurve()
			if siteCurve {
				lat, lon := config.Site(v)
				start, end := weather.LastYear(time.Now())
				c, err := weather.NewOpenMeteoClient(lat, lon).Curve(ctx, start, end)
				if err != nil {
					logger.Warn("site irradiance unavailable, using reference curve", slog.Any("error", err))
				} else {
					curve = c
				}
			}

			srv := uiapi.NewServer(st, cfg, curve, logger)
			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("offgrid server starting",
				slog.Int("port", port),
				slog.String("db", dbPath),
				slog.Float64("sunHours", cfg.SunHours(curve)),
			)

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "Database path")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.offgrid/config.yaml)")
	rootCmd.Flags().BoolVar(&siteCurve, "site-curve", false, "Use last year's Open-Meteo irradiance for the configured site")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
