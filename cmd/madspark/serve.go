// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/madspark-labs/madspark/pkg/cache"
	"github.com/madspark-labs/madspark/pkg/llm/factory"
	"github.com/madspark-labs/madspark/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MadSpark HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8585", "listen address")
	_ = viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	env := factory.ReadEnv()
	store, err := cache.Open(cache.Config{Dir: cacheDir(env), Logger: logger})
	if err != nil {
		logger.Warn("cache unavailable, serving without it", zap.Error(err))
		store = nil
	} else {
		defer store.Close()
	}

	srv := server.New(server.Config{Env: env, Cache: store, Logger: logger})
	httpSrv := &http.Server{
		Addr:              viper.GetString("addr"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpSrv.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
