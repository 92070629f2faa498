package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"chat-style-studio/internal/config"
	"chat-style-studio/internal/model"
	"chat-style-studio/internal/service"
	"chat-style-studio/internal/storage"
	"chat-style-studio/internal/style"
	"chat-style-studio/internal/worker"
	"chat-style-studio/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Handler struct {
	cfg         config.Config
	collections *service.CollectionService
	styles      *service.StyleService
	captions    *service.Captions
	pool        *worker.Pool
	hub         *ws.Hub
	collHub     *ws.CollectionHub
	logger      zerolog.Logger
	upgrader    websocket.Upgrader
}

type apiError struct {
	Error    string `json:"error"`
	Required int    `json:"required,omitempty"`
	Have     int    `json:"have,omitempty"`
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Help(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"help": h.captions.Help(localeFromContext(r.Context()))})
}

func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade failed")
		return
	}
	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) CollectionWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	collectionID := chi.URLParam(r, "collectionID")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Str("collection", collectionID).Msg("collection ws upgrade failed")
		return
	}
	client := h.collHub.Register(collectionID, conn)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	ids, err := h.collections.Collections(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"collections": ids})
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSizeBytes); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	collectionID := chi.URLParam(r, "collectionID")
	userID := firstOr(r.FormValue("user_id"), userIDFromRequest(r))
	username := strings.TrimSpace(r.FormValue("username"))

	file, fileHeader, err := r.FormFile("image")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	if err := validateImageUpload(fileHeader); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	b, err := io.ReadAll(file)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	ref, total, err := h.collections.AddImage(r.Context(), collectionID, userID, username, b)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"image":   ref,
		"total":   total,
		"message": h.captions.Upload(localeFromContext(r.Context()), total),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.collections.Stats(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Style(w http.ResponseWriter, r *http.Request) {
	desc, sampled, err := h.styles.SampleStyle(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"style":   desc,
		"palette": style.PaletteHex(desc.DominantColors),
		"sampled": sampled,
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, model.KindGenerate)
}

func (h *Handler) Mix(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, model.KindMix)
}

func (h *Handler) Collage(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, model.KindCollage)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, kind model.GenerationKind) {
	collectionID := chi.URLParam(r, "collectionID")
	loc := localeFromContext(r.Context())

	if isTruthy(r.URL.Query().Get("async")) {
		if h.pool == nil {
			writeErr(w, http.StatusServiceUnavailable, errors.New("async generation is disabled"))
			return
		}
		job, err := h.pool.Submit(worker.Job{CollectionID: collectionID, Kind: kind, Locale: loc})
		if err != nil {
			writeErr(w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID, "kind": string(kind)})
		return
	}

	gen, err := h.styles.Run(r.Context(), kind, collectionID, loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeImage(w, gen.Ref, gen.Image)
}

func (h *Handler) Generated(w http.ResponseWriter, r *http.Request) {
	ref, b, err := h.styles.Stored(r.Context(), chi.URLParam(r, "collectionID"), chi.URLParam(r, "generationID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeImage(w, ref, b)
}

// fail maps service errors to status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *service.CountError
	switch {
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: err.Error(), Required: cerr.Required, Have: cerr.Have})
	case errors.Is(err, service.ErrInvalidImage), errors.Is(err, service.ErrInvalidInput):
		writeErr(w, http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrNotFound):
		writeErr(w, http.StatusNotFound, err)
	default:
		h.logger.Error().Err(err).Str("request_id", requestIDFromContext(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		writeErr(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeImage(w http.ResponseWriter, ref model.GenerationRef, b []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Header().Set("X-Generation-ID", ref.ID)
	w.Header().Set("X-Source-Count", strconv.Itoa(ref.SourceCount))
	w.Header().Set("X-Caption", strings.ReplaceAll(ref.Caption, "\n", " "))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func validateImageUpload(header *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
		return nil
	default:
		return errors.New("unsupported image format")
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, apiError{Error: err.Error()})
}

func firstOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func userIDFromRequest(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if v != "" {
		return v
	}
	return "anon"
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
