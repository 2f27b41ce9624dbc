// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package pkarr

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aumos-ai/did-pkarr/did"
	"github.com/aumos-ai/did-pkarr/packet"
)

// Handler serves the relay HTTP API in front of a Client, so that a
// MemoryClient can stand in for a relay or a RelayClient can be proxied.
type Handler struct {
	client Client
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler returns a relay handler backed by client. A nil logger
// discards handler logs.
func NewHandler(client Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Handler{client: client, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /{key}", h.get)
	h.mux.HandleFunc("PUT /{key}", h.put)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	pub, err := did.DecodePkarrKey(r.PathValue("key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.client.Resolve(r.Context(), pub)
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "pkarr: handler resolve failed",
			slog.String("key", r.PathValue("key")), slog.Any("error", err))
		http.Error(w, "resolve failed", http.StatusBadGateway)
		return
	}

	payload := p.RelayPayload()
	w.Header().Set("Content-Type", payloadContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	_, _ = w.Write(payload)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	pub, err := did.DecodePkarrKey(r.PathValue("key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, packet.MaxSize))
	if err != nil {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	p, err := packet.FromRelayPayload(pub, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.client.Publish(r.Context(), p)
	switch {
	case errors.Is(err, ErrNotMostRecent):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "pkarr: handler publish failed",
			slog.String("key", p.Origin()), slog.Any("error", err))
		http.Error(w, "publish failed", http.StatusBadGateway)
		return
	}

	h.logger.DebugContext(r.Context(), "pkarr: stored packet",
		slog.String("key", p.Origin()), slog.Uint64("timestamp", uint64(p.Timestamp())))
	w.WriteHeader(http.StatusNoContent)
}
