// Package token issues short-lived session credentials so clients can
// negotiate without ever seeing the long-lived secret.
package token

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
)

const maxInstructionsLen = 2000

var allowedVoices = map[string]bool{
	"alloy":   true,
	"ash":     true,
	"ballad":  true,
	"coral":   true,
	"echo":    true,
	"sage":    true,
	"shimmer": true,
	"verse":   true,
}

var allowedModalities = map[string]bool{
	"text":  true,
	"audio": true,
}

type Handler struct {
	minter  Minter
	limiter RateLimiter
	log     *log.Logger
}

func NewHandler(minter Minter, limiter RateLimiter, logger *log.Logger) *Handler {
	return &Handler{minter: minter, limiter: limiter, log: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/realtime/token", h.handleMint)
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	key := clientKey(r)
	if !h.limiter.Allow(key) {
		h.log.Warn("rate limited", "key", key)
		retryAfter := 60
		if fw, ok := h.limiter.(*FixedWindow); ok {
			retryAfter = int(fw.RetryAfter(key).Seconds()) + 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "rate_limited")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_json")
		return
	}

	if msg := validate(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg, "validation")
		return
	}

	cred, err := h.minter.Mint(r.Context(), req)
	if err != nil {
		h.log.Error("mint credential", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session", "upstream")
		return
	}

	h.log.Info("credential issued", "session", cred.SessionID, "key", key)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(cred); err != nil {
		h.log.Error("encode credential", "error", err)
	}
}

func validate(req Request) string {
	if req.Instructions == "" {
		return "instructions must not be empty"
	}
	if len(req.Instructions) > maxInstructionsLen {
		return fmt.Sprintf("instructions exceed %d characters", maxInstructionsLen)
	}
	if req.Voice != "" && !allowedVoices[req.Voice] {
		return fmt.Sprintf("unsupported voice %q", req.Voice)
	}
	if req.Modalities != nil {
		if len(req.Modalities) == 0 {
			return "modalities must not be empty"
		}
		for _, m := range req.Modalities {
			if !allowedModalities[m] {
				return fmt.Sprintf("unsupported modality %q", m)
			}
		}
	}
	return ""
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"code":  code,
	})
}
