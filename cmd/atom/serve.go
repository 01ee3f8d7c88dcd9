// Copyright 2024 Atom Onboarding Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/your-org/atom-onboarding/internal/api"
	"github.com/your-org/atom-onboarding/internal/config"
	"github.com/your-org/atom-onboarding/internal/health"
	"github.com/your-org/atom-onboarding/internal/logging"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the onboarding HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			if port > 0 {
				a.cfg.Server.Port = port
			}
			return serve(ctx, a, opts.configPath)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Override the configured listen port")
	return cmd
}

func serve(ctx context.Context, a *app, configPath string) error {
	if a.cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	healthManager := health.NewManager("atom", version, a.logger)
	healthManager.AddChecker("llm", health.ProviderChecker(a.gateway))
	healthManager.AddChecker("sessions", health.SessionChecker(a.service.Sessions()))
	healthManager.AddChecker("interactions", health.StoreChecker(a.interactions.StorageType(), a.interactions.Ping))

	router := api.NewRouter(api.NewHandler(a.service, healthManager, a.interactions, a.logger))

	if err := config.WatchConfig(configPath, a.logger, func(updated *config.Config) {
		level, err := logging.ParseLevel(updated.Logging.Level)
		if err != nil {
			a.logger.Warn("Ignoring invalid log level from reload", zap.Error(err))
			return
		}
		a.level.SetLevel(level)
		a.logger.Info("Log level updated", zap.String("level", level.String()))
	}); err != nil {
		a.logger.Info("Config hot reload disabled", zap.Error(err))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting onboarding API",
			zap.Int("port", a.cfg.Server.Port),
			zap.String("provider", a.gateway.ProviderName()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	a.logger.Info("Onboarding API stopped")
	return nil
}
