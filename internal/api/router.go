package api

import (
	"net/http"

	"chat-style-studio/internal/config"
	"chat-style-studio/internal/service"
	"chat-style-studio/internal/worker"
	"chat-style-studio/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Deps struct {
	Config        config.Config
	Collections   *service.CollectionService
	Styles        *service.StyleService
	Captions      *service.Captions
	Pool          *worker.Pool
	Hub           *ws.Hub
	CollectionHub *ws.CollectionHub
	Logger        zerolog.Logger
}

func NewRouter(d Deps) http.Handler {
	h := &Handler{
		cfg:         d.Config,
		collections: d.Collections,
		styles:      d.Styles,
		captions:    d.Captions,
		pool:        d.Pool,
		hub:         d.Hub,
		collHub:     d.CollectionHub,
		logger:      d.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(locale)

	r.Get("/healthz", h.Healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/help", h.Help)
		r.Get("/ws", h.WebSocket)
		r.Get("/collections", h.ListCollections)
		r.Route("/collections/{collectionID}", func(r chi.Router) {
			r.Get("/ws", h.CollectionWebSocket)
			r.With(limitBody(d.Config.MaxUploadSizeBytes)).Post("/images", h.UploadImage)
			r.Get("/stats", h.Stats)
			r.Get("/style", h.Style)
			r.Post("/generate", h.Generate)
			r.Post("/mix", h.Mix)
			r.Post("/collage", h.Collage)
			r.Get("/generated/{generationID}", h.Generated)
		})
	})
	return r
}

func limitBody(maxSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			next.ServeHTTP(w, r)
		})
	}
}
