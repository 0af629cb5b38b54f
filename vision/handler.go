package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
)

// Translator is the service surface the handler needs; split out so
// handler tests can stub the model away.
type Translator interface {
	Translate(ctx context.Context, req Request) (*Result, error)
}

type apiRequest struct {
	Image          string `json:"image"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
}

type apiResponse struct {
	Success bool    `json:"success"`
	Data    *Result `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
}

type Handler struct {
	svc Translator
	log *log.Logger
}

func NewHandler(svc Translator, logger *log.Logger) *Handler {
	return &Handler{svc: svc, log: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/image/translate", h.handleTranslate)
}

func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req apiRequest
	// A 10MB image grows ~4/3 in base64; cap the body a bit above.
	body := http.MaxBytesReader(w, r.Body, MaxImageBytes*3/2)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid request body"})
		return
	}
	if req.Image == "" || req.TargetLanguage == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "image and targetLanguage are required"})
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "image is not valid base64"})
		return
	}
	if len(image) > MaxImageBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, apiResponse{Error: "image exceeds 10MB"})
		return
	}

	result, err := h.svc.Translate(r.Context(), Request{
		Image:          image,
		TargetLanguage: req.TargetLanguage,
		SourceLanguage: req.SourceLanguage,
	})
	if err != nil {
		h.log.Error("image translation", "error", err)
		writeJSON(w, http.StatusBadGateway, apiResponse{Error: "translation failed"})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: result})
}

func writeJSON(w http.ResponseWriter, status int, v apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
