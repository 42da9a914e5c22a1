package model

import (
	"log/slog"
)

// Handle is the outcome of the one-time model load at startup. When loading
// failed Scorer is nil and Err says why; the process keeps running without
// a model.
type Handle struct {
	Scorer Scorer
	Err    error
	server *Server
}

// Open loads the model and never fails the caller: errors are logged and
// kept on the handle.
func Open(cfg LoadConfig, log *slog.Logger) *Handle {
	log.Info("Loading model", "path", cfg.ModelPath)

	server, err := Load(cfg)
	if err != nil {
		log.Error("Model is not loaded", "path", cfg.ModelPath, "error", err)
		return &Handle{Err: err}
	}

	log.Info("Model loaded",
		"input", server.Metadata.InputName,
		"output", server.Metadata.OutputName,
		"classes", server.Metadata.Classes)
	return &Handle{Scorer: server, server: server}
}

// Loaded reports whether a model is available for inference.
func (h *Handle) Loaded() bool {
	return h != nil && h.Scorer != nil
}

// Metadata returns the loaded model's metadata, or nil.
func (h *Handle) Metadata() *Metadata {
	if h == nil || h.server == nil {
		return nil
	}
	return &h.server.Metadata
}

// ErrorText is the load failure message shown to users, or empty.
func (h *Handle) ErrorText() string {
	if h == nil || h.Err == nil {
		return ""
	}
	return h.Err.Error()
}

func (h *Handle) Close() {
	if h != nil && h.server != nil {
		h.server.Close()
	}
}
