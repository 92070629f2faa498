// Package service applies collection policy on top of the style engine:
// minimum image counts, sampling, persistence of results and event fan-out.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-style-studio/internal/model"
)

var (
	ErrNotEnoughImages = errors.New("not enough images in collection")
	ErrInvalidImage    = errors.New("image data cannot be decoded")
	ErrInvalidInput    = errors.New("invalid input")
)

type CollectionRepository interface {
	AddImage(ctx context.Context, ref model.ImageRef) error
	ListImages(ctx context.Context, collectionID string) ([]model.ImageRef, error)
	AddGeneration(ctx context.Context, ref model.GenerationRef) error
	GetGeneration(ctx context.Context, collectionID, id string) (model.GenerationRef, error)
	ListCollections(ctx context.Context) ([]string, error)
}

type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

type EventPublisher interface {
	Publish(evt model.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.Event) {}

// CountError reports an operation attempted on a collection that is too small.
type CountError struct {
	Op       string
	Required int
	Have     int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("%s needs at least %d images, collection has %d", e.Op, e.Required, e.Have)
}

func (e *CountError) Is(target error) bool {
	return target == ErrNotEnoughImages
}

const (
	EventImageAdded          = "image.added"
	EventGenerationCompleted = "generation.completed"
	EventGenerationFailed    = "generation.failed"
)

func newEvent(typ, collectionID string, payload interface{}) model.Event {
	return model.Event{
		Type:         typ,
		CollectionID: collectionID,
		Payload:      payload,
		CreatedAt:    time.Now().UnixMilli(),
	}
}
