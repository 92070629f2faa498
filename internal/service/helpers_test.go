package service

import (
	"context"
	"image/color"
	"path/filepath"
	"sync"
	"testing"

	"chat-style-studio/internal/model"
	"chat-style-studio/internal/storage"
	"chat-style-studio/internal/style"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Publish(evt model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	repo        *storage.Store
	blobs       *storage.FileStore
	events      *recorder
	collections *CollectionService
	styles      *StyleService
}

func newFixture(t *testing.T, seed int64) *fixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := storage.NewStore(filepath.Join(dir, "collections.json"))
	require.NoError(t, err)
	blobs, err := storage.NewFileStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	events := &recorder{}
	logger := zerolog.Nop()
	extractor := style.NewExtractor(16, 0, style.PaletteHistogram, logger)
	return &fixture{
		repo:        repo,
		blobs:       blobs,
		events:      events,
		collections: NewCollectionService(repo, blobs, events, logger),
		styles: NewStyleService(repo, blobs, extractor, NewCaptions("en"), events, logger, GenerationOptions{
			CanvasSize: 64,
			Seed:       seed,
		}),
	}
}

func jpegOf(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	b, err := style.EncodeJPEG(imaging.New(24, 24, c), 95)
	require.NoError(t, err)
	return b
}

var palette = []color.NRGBA{
	{R: 220, G: 30, B: 30, A: 255},
	{R: 30, G: 200, B: 40, A: 255},
	{R: 20, G: 40, B: 210, A: 255},
	{R: 240, G: 220, B: 20, A: 255},
	{R: 120, G: 20, B: 160, A: 255},
}

func (f *fixture) upload(t *testing.T, collectionID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, _, err := f.collections.AddImage(context.Background(), collectionID, "u1", "ann", jpegOf(t, palette[i%len(palette)]))
		require.NoError(t, err)
	}
}
