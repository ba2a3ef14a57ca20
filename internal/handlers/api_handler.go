package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/qrcode"
	"github.com/Varun5711/shortbox/internal/service"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 4 << 20

// APIHandler serves the JSON creation endpoints.
type APIHandler struct {
	creator service.Creator
	log     *logger.Logger
}

func NewAPIHandler(creator service.Creator, log *logger.Logger) *APIHandler {
	return &APIHandler{creator: creator, log: log}
}

func (h *APIHandler) Register(r chi.Router) {
	r.Post("/api/urls", h.ShortenURL)
	r.Post("/api/lists", h.CreateLinkList)
	r.Post("/api/clips", h.CreateClip)
}

func (h *APIHandler) ShortenURL(w http.ResponseWriter, r *http.Request) {
	var req models.ShortenURLRequest
	if !decode(w, r, &req) {
		return
	}
	h.create(w, r, models.KindRedirect, func(ctx context.Context) (*models.CreatedResponse, error) {
		return h.creator.ShortenURL(ctx, req)
	})
}

func (h *APIHandler) CreateLinkList(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLinkListRequest
	if !decode(w, r, &req) {
		return
	}
	h.create(w, r, models.KindList, func(ctx context.Context) (*models.CreatedResponse, error) {
		return h.creator.CreateLinkList(ctx, req)
	})
}

func (h *APIHandler) CreateClip(w http.ResponseWriter, r *http.Request) {
	var req models.CreateClipRequest
	if !decode(w, r, &req) {
		return
	}
	h.create(w, r, models.KindClip, func(ctx context.Context) (*models.CreatedResponse, error) {
		return h.creator.CreateClip(ctx, req)
	})
}

func (h *APIHandler) create(w http.ResponseWriter, r *http.Request, kind models.Kind, call func(context.Context) (*models.CreatedResponse, error)) {
	resp, err := call(r.Context())
	if err != nil {
		if !errors.Is(err, service.ErrValidation) {
			h.log.Error("Failed to create %s: %v", kind, err)
		}
		respondServiceError(w, err)
		return
	}

	if resp.QRCode == "" {
		uri, err := qrcode.GenerateDataURI(resp.ShortURL)
		if err != nil {
			h.log.Warn("Failed to render QR for %s: %v", resp.ShortURL, err)
		} else {
			resp.QRCode = uri
		}
	}

	respondJSON(w, http.StatusCreated, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body is too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_json", "invalid JSON")
		return false
	}
	return true
}
