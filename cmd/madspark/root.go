// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/madspark-labs/madspark/pkg/cache"
	"github.com/madspark-labs/madspark/pkg/llm/factory"
	"github.com/madspark-labs/madspark/pkg/parser"
	"github.com/madspark-labs/madspark/pkg/router"
	"github.com/madspark-labs/madspark/pkg/types"
	"github.com/madspark-labs/madspark/pkg/workflow"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "madspark <topic>",
	Short: "Multi-agent idea generation and refinement",
	Long: `MadSpark generates ideas on a topic, critiques them, and refines the
strongest candidates through advocate, skeptic, and improver agents.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWorkflow,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default madspark.yaml in . or ~/.madspark)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().String("context", "", "additional context for the generator")
	rootCmd.Flags().Bool("enhanced", false, "run advocate and skeptic stages")
	rootCmd.Flags().Bool("logical", false, "run the logical-inference stage")
	rootCmd.Flags().String("analysis-type", "full_chain", "logical-inference variant (full_chain, causal, constraint, contradiction, implication)")
	rootCmd.Flags().IntP("top-ideas", "n", 2, "number of top candidates to refine (1-5)")
	rootCmd.Flags().String("temperature-preset", "balanced", "sampling preset (conservative, balanced, creative, wild)")
	rootCmd.Flags().String("provider", "ollama", "LLM provider (ollama, gemini, auto, mock)")
	rootCmd.Flags().String("model-tier", "balanced", "model tier (fast, balanced, quality)")
	rootCmd.Flags().Bool("no-cache", false, "disable the response cache")
	rootCmd.Flags().Bool("enable-cache", false, "force-enable the response cache")
	rootCmd.Flags().Bool("no-fallback", false, "disable provider fallback")
	rootCmd.Flags().Float64("novelty-threshold", workflow.DefaultNoveltyThreshold, "Jaccard similarity above which ideas are deduplicated")
	rootCmd.Flags().Duration("timeout", 10*time.Minute, "overall run timeout")
	rootCmd.Flags().StringP("output", "o", "text", "output format (text, json)")

	for _, name := range []string{
		"context", "enhanced", "logical", "analysis-type", "top-ideas",
		"temperature-preset", "provider", "model-tier", "no-cache",
		"enable-cache", "no-fallback", "novelty-threshold", "timeout", "output",
	} {
		_ = viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd)
}

// initConfig layers configuration: flags over file over environment over
// defaults.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("madspark")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".madspark"))
		}
	}
	viper.SetEnvPrefix("MADSPARK")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: could not read config: %v\n", err)
		}
	}
}

func newLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, &usageError{err: fmt.Errorf("invalid log level: %w", err)}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	return cfg.Build()
}

func cacheDir(env factory.Env) string {
	if env.CacheDir != "" {
		return env.CacheDir
	}
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "madspark")
	}
	return ".madspark-cache"
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return &usageError{err: fmt.Errorf("a topic argument is required")}
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	req := types.Request{
		Topic:             args[0],
		Context:           viper.GetString("context"),
		NumTopCandidates:  viper.GetInt("top-ideas"),
		TemperaturePreset: types.TemperaturePreset(viper.GetString("temperature-preset")),
		Enhanced:          viper.GetBool("enhanced"),
		Logical:           viper.GetBool("logical"),
		MultiDimensional:  true,
		InferenceVariant:  types.InferenceVariant(viper.GetString("analysis-type")),
		NoveltyThreshold:  viper.GetFloat64("novelty-threshold"),
	}
	if err := req.Validate(); err != nil {
		return &usageError{err: err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, viper.GetDuration("timeout"))
	defer cancel()

	env := factory.ReadEnv()
	providerName := viper.GetString("provider")
	primary, fallback, err := factory.New(ctx, factory.Config{
		Provider: providerName,
		Tier:     types.ModelTier(viper.GetString("model-tier")),
		Env:      env,
		Logger:   logger,
	})
	if err != nil {
		return &usageError{err: err}
	}

	cacheEnabled := !viper.GetBool("no-cache")
	if viper.GetBool("enable-cache") {
		cacheEnabled = true
	}
	var store *cache.Cache
	if cacheEnabled {
		store, err = cache.Open(cache.Config{Dir: cacheDir(env), Logger: logger})
		if err != nil {
			// Cache trouble degrades to no-cache, never blocks a run.
			logger.Warn("cache unavailable, continuing without it", zap.Error(err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	rcfg := router.DefaultConfig()
	rcfg.PrimaryProvider = primary.Name()
	rcfg.ModelTier = types.ModelTier(viper.GetString("model-tier"))
	rcfg.CacheEnabled = cacheEnabled && store != nil
	rcfg.FallbackEnabled = !viper.GetBool("no-fallback")
	rt := router.New(rcfg, primary, fallback, parser.New(logger), store, logger)

	coord := workflow.New(workflow.Config{Router: rt, Logger: logger})
	result, err := coord.Run(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return &canceledError{}
		}
		return err
	}
	if result.Canceled {
		renderResult(cmd.OutOrStdout(), result, viper.GetString("output"))
		return &canceledError{}
	}
	return renderResult(cmd.OutOrStdout(), result, viper.GetString("output"))
}
