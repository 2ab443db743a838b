// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package server exposes the workflow pipeline over HTTP. A POST starts
// a run with a request-scoped router; progress is forwarded on a
// server-sent-events stream keyed by run ID.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"

	"github.com/madspark-labs/madspark/pkg/cache"
	"github.com/madspark-labs/madspark/pkg/llm/factory"
	"github.com/madspark-labs/madspark/pkg/parser"
	"github.com/madspark-labs/madspark/pkg/router"
	"github.com/madspark-labs/madspark/pkg/types"
	"github.com/madspark-labs/madspark/pkg/workflow"
)

// Config wires a Server. Cache may be nil to run uncached.
type Config struct {
	Env    factory.Env
	Cache  *cache.Cache
	Logger *zap.Logger
}

// WorkflowRequest is the POST body: the pipeline request plus the
// router knobs that are per-request on the HTTP surface.
type WorkflowRequest struct {
	types.Request

	Provider        string          `json:"provider,omitempty"`
	ModelTier       types.ModelTier `json:"model_tier,omitempty"`
	CacheEnabled    *bool           `json:"cache_enabled,omitempty"`
	FallbackEnabled *bool           `json:"fallback_enabled,omitempty"`
}

type run struct {
	mu     sync.Mutex
	done   bool
	result *workflow.Result
	err    error
}

// Server handles the HTTP surface. Runs are kept in memory; this is a
// single-node surface, not a distributed job queue.
type Server struct {
	env    factory.Env
	cache  *cache.Cache
	logger *zap.Logger
	stream *sse.Server

	mu   sync.Mutex
	runs map[string]*run
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := sse.New()
	s.AutoReplay = false
	return &Server{
		env:    cfg.Env,
		cache:  cfg.Cache,
		logger: cfg.Logger,
		stream: s,
		runs:   make(map[string]*run),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/workflows", s.handleCreate)
	mux.HandleFunc("GET /api/v1/workflows/{id}", s.handleGet)
	mux.HandleFunc("GET /api/v1/events", s.stream.ServeHTTP)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, uploads, err := s.decodeRequest(r)
	if err == nil {
		err = req.Request.Validate()
	}
	if err == nil {
		for _, att := range req.Attachments {
			if att.URL == "" {
				continue
			}
			if err = ValidateAttachmentURL(att.URL); err != nil {
				break
			}
		}
	}
	if err != nil {
		if uploads != nil {
			uploads.Cleanup()
		}
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	id := uuid.NewString()
	s.stream.CreateStream(id)
	rn := &run{}
	s.mu.Lock()
	s.runs[id] = rn
	s.mu.Unlock()

	go s.execute(id, rn, req, uploads)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"id":         id,
		"status_url": "/api/v1/workflows/" + id,
		"events_url": "/api/v1/events?stream=" + id,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	rn, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown workflow %s", id))
		return
	}

	rn.mu.Lock()
	defer rn.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if !rn.done {
		json.NewEncoder(w).Encode(map[string]string{"status": "running"})
		return
	}
	if rn.err != nil {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"status": "failed", "error": rn.err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"status": "done", "result": rn.result})
}

// decodeRequest accepts either a JSON body or a multipart form with a
// "request" JSON part plus "attachments" files.
func (s *Server) decodeRequest(r *http.Request) (*WorkflowRequest, *uploadStore, error) {
	var req WorkflowRequest

	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/") {
		if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(&req); err != nil {
			return nil, nil, fmt.Errorf("invalid request body: %w", err)
		}
		return &req, nil, nil
	}

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	if err := json.Unmarshal([]byte(r.FormValue("request")), &req); err != nil {
		return nil, nil, fmt.Errorf("invalid request part: %w", err)
	}

	uploads, err := newUploadStore(s.logger)
	if err != nil {
		return nil, nil, err
	}
	for _, fh := range r.MultipartForm.File["attachments"] {
		att, err := uploads.Save(fh)
		if err != nil {
			return nil, uploads, err
		}
		req.Attachments = append(req.Attachments, att)
	}
	return &req, uploads, nil
}

// execute runs one workflow to completion, forwarding progress events to
// the run's SSE stream. Upload temp files are removed whichever way the
// run ends.
func (s *Server) execute(id string, rn *run, req *WorkflowRequest, uploads *uploadStore) {
	if uploads != nil {
		defer uploads.Cleanup()
	}
	ctx := context.Background()
	log := s.logger.With(zap.String("workflow_id", id))

	result, err := s.runWorkflow(ctx, id, req, log)

	rn.mu.Lock()
	rn.done = true
	rn.result = result
	rn.err = err
	rn.mu.Unlock()

	if err != nil {
		log.Warn("workflow failed", zap.Error(err))
		s.publish(id, workflow.Event{
			Type: workflow.EventError, Stage: "workflow",
			Message: err.Error(), TimestampMS: time.Now().UnixMilli(),
		})
	}
}

func (s *Server) runWorkflow(ctx context.Context, id string, req *WorkflowRequest, log *zap.Logger) (*workflow.Result, error) {
	primary, fallback, err := factory.New(ctx, factory.Config{
		Provider: req.Provider,
		Tier:     req.ModelTier,
		Env:      s.env,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	rcfg := router.DefaultConfig()
	rcfg.PrimaryProvider = primary.Name()
	if req.ModelTier != "" {
		rcfg.ModelTier = req.ModelTier
	}
	if req.CacheEnabled != nil {
		rcfg.CacheEnabled = *req.CacheEnabled
	}
	if req.FallbackEnabled != nil {
		rcfg.FallbackEnabled = *req.FallbackEnabled
	}
	store := s.cache
	if !rcfg.CacheEnabled {
		store = nil
	}
	rt := router.New(rcfg, primary, fallback, parser.New(log), store, log)

	emitter := workflow.NewEmitter()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range emitter.Events() {
			s.publish(id, ev)
		}
	}()

	coord := workflow.New(workflow.Config{
		Router:  rt,
		Logger:  log,
		Emitter: emitter,
	})
	result, err := coord.Run(ctx, req.Request)
	emitter.Close()
	<-forwarded
	return result, err
}

func (s *Server) publish(id string, ev workflow.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.stream.Publish(id, &sse.Event{Event: []byte(string(ev.Type)), Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
