package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chat-style-studio/internal/config"
	"chat-style-studio/internal/model"
	"chat-style-studio/internal/service"
	"chat-style-studio/internal/storage"
	"chat-style-studio/internal/style"
	"chat-style-studio/internal/worker"
	"chat-style-studio/internal/ws"
	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	collHub *ws.CollectionHub
	pool    *worker.Pool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	logger := zerolog.Nop()
	cfg := config.Config{MaxUploadSizeBytes: 4 << 20, CanvasSize: 48, JPEGQuality: 85, CollageQuality: 95}

	repo, err := storage.NewStore(filepath.Join(dir, "collections.json"))
	require.NoError(t, err)
	blobs, err := storage.NewFileStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub(logger)
	go hub.Run(ctx)
	collHub := ws.NewCollectionHub()
	events := ws.Multi{hub, collHub}

	captions := service.NewCaptions("en")
	extractor := style.NewExtractor(16, 0, style.PaletteHistogram, logger)
	collections := service.NewCollectionService(repo, blobs, events, logger)
	styles := service.NewStyleService(repo, blobs, extractor, captions, events, logger, service.GenerationOptions{
		CanvasSize:     cfg.CanvasSize,
		JPEGQuality:    cfg.JPEGQuality,
		CollageQuality: cfg.CollageQuality,
		Seed:           11,
	})
	pool := worker.NewPool(styles, 4, logger)
	pool.Start(1)
	t.Cleanup(func() {
		_ = pool.Stop(context.Background())
		cancel()
	})

	return &testServer{
		handler: NewRouter(Deps{
			Config:        cfg,
			Collections:   collections,
			Styles:        styles,
			Captions:      captions,
			Pool:          pool,
			Hub:           hub,
			CollectionHub: collHub,
			Logger:        logger,
		}),
		collHub: collHub,
		pool:    pool,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, collectionID, user, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("user_id", user))
	require.NoError(t, mw.WriteField("username", "name-"+user))
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/collections/"+collectionID+"/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jpegOf(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	b, err := style.EncodeJPEG(imaging.New(20, 20, c), 95)
	require.NoError(t, err)
	return b
}

func (s *testServer) seed(t *testing.T, collectionID string, n int) {
	t.Helper()
	colors := []color.NRGBA{{R: 200, A: 255}, {G: 200, A: 255}, {B: 200, A: 255}, {R: 200, G: 200, A: 255}}
	for i := 0; i < n; i++ {
		rec := s.do(t, uploadRequest(t, collectionID, "u1", "p.jpg", jpegOf(t, colors[i%len(colors)])))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthzEchoesRequestID(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")

	rec := s.do(t, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUploadAndStats(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, uploadRequest(t, "chat-9", "7", "photo.jpg", jpegOf(t, color.NRGBA{R: 10, A: 255})))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var up struct {
		Image   model.ImageRef `json:"image"`
		Total   int            `json:"total"`
		Message string         `json:"message"`
	}
	decode(t, rec, &up)
	assert.Equal(t, 1, up.Total)
	assert.Equal(t, "name-7", up.Image.Username)
	assert.Contains(t, up.Message, "Total: 1")

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/v1/collections/chat-9/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats model.CollectionStats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalImages)
	assert.Equal(t, 1, stats.Participants)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/v1/collections", nil))
	assert.JSONEq(t, `{"collections":["chat-9"]}`, rec.Body.String())
}

func TestUploadRejectsBadFiles(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, uploadRequest(t, "c", "1", "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, uploadRequest(t, "c", "1", "fake.jpg", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be decoded")
}

func TestGenerateNeedsTwoImages(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "c", 1)

	rec := s.do(t, httptest.NewRequest(http.MethodPost, "/v1/collections/c/generate", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body apiError
	decode(t, rec, &body)
	assert.Equal(t, 2, body.Required)
	assert.Equal(t, 1, body.Have)
}

func TestGenerateReturnsJPEG(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "c", 3)

	rec := s.do(t, httptest.NewRequest(http.MethodPost, "/v1/collections/c/generate", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "3", rec.Header().Get("X-Source-Count"))
	assert.Contains(t, rec.Header().Get("X-Caption"), "Generated from 3 images")
	assert.NotContains(t, rec.Header().Get("X-Caption"), "\n")

	cfg, _, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Width)

	id := rec.Header().Get("X-Generation-ID")
	require.NotEmpty(t, id)
	stored := s.do(t, httptest.NewRequest(http.MethodGet, "/v1/collections/c/generated/"+id, nil))
	assert.Equal(t, http.StatusOK, stored.Code)
	assert.Equal(t, rec.Body.Bytes(), stored.Body.Bytes())
}

func TestMixAndCollageUseLocale(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "c", 5)

	req := httptest.NewRequest(http.MethodPost, "/v1/collections/c/mix", nil)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	rec := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "4", rec.Header().Get("X-Source-Count"))
	assert.Contains(t, rec.Header().Get("X-Caption"), "Микс")

	rec = s.do(t, httptest.NewRequest(http.MethodPost, "/v1/collections/c/collage?lang=en", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cfg, _, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, style.CollageSide, cfg.Width)
}

func TestStyleEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/v1/collections/empty/style", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	s.seed(t, "c", 2)
	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/v1/collections/c/style", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Style   model.StyleDescriptor `json:"style"`
		Palette []string              `json:"palette"`
		Sampled int                   `json:"sampled"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 2, body.Sampled)
	assert.Len(t, body.Palette, len(body.Style.DominantColors))
}

func TestGeneratedNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/v1/collections/c/generated/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAsyncGenerateAnnouncesResult(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/collections/c/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.collHub.Watchers("c") == 1 }, 2*time.Second, 10*time.Millisecond)

	s.seed(t, "c", 2)
	rec := s.do(t, httptest.NewRequest(http.MethodPost, "/v1/collections/c/generate?async=1", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	decode(t, rec, &accepted)
	assert.NotEmpty(t, accepted["job_id"])

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var types []string
	for len(types) < 3 {
		var evt model.Event
		require.NoError(t, conn.ReadJSON(&evt))
		types = append(types, evt.Type)
	}
	assert.Equal(t, []string{service.EventImageAdded, service.EventImageAdded, service.EventGenerationCompleted}, types)
}

func TestHelpIsLocalised(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/help", nil)
	req.Header.Set("X-Locale", "ru")

	rec := s.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "коллекц")
}
