package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"chat-style-studio/internal/model"
	"chat-style-studio/internal/style"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const topContributors = 3

type CollectionService struct {
	repo   CollectionRepository
	blobs  BlobStore
	events EventPublisher
	logger zerolog.Logger
}

func NewCollectionService(repo CollectionRepository, blobs BlobStore, events EventPublisher, logger zerolog.Logger) *CollectionService {
	if events == nil {
		events = nopPublisher{}
	}
	return &CollectionService{repo: repo, blobs: blobs, events: events, logger: logger}
}

// AddImage stores data in the collection and returns the new reference along
// with the collection size after the insert.
func (s *CollectionService) AddImage(ctx context.Context, collectionID, userID, username string, data []byte) (model.ImageRef, int, error) {
	collectionID = strings.TrimSpace(collectionID)
	userID = strings.TrimSpace(userID)
	if collectionID == "" || userID == "" {
		return model.ImageRef{}, 0, fmt.Errorf("%w: collection and user are required", ErrInvalidInput)
	}
	if !style.Decodable(data) {
		return model.ImageRef{}, 0, ErrInvalidImage
	}
	if strings.TrimSpace(username) == "" {
		username = "user_" + userID
	}

	id := uuid.NewString()
	key, err := s.blobs.Write(ctx, fmt.Sprintf("collections/%s/%s_%s.jpg", collectionID, userID, id), data)
	if err != nil {
		return model.ImageRef{}, 0, fmt.Errorf("store image: %w", err)
	}
	ref := model.ImageRef{
		ID:           id,
		CollectionID: collectionID,
		UserID:       userID,
		Username:     username,
		BlobKey:      key,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := s.repo.AddImage(ctx, ref); err != nil {
		return model.ImageRef{}, 0, fmt.Errorf("record image: %w", err)
	}
	images, err := s.repo.ListImages(ctx, collectionID)
	if err != nil {
		return model.ImageRef{}, 0, fmt.Errorf("list images: %w", err)
	}

	s.logger.Info().Str("collection", collectionID).Str("user", userID).Int("total", len(images)).Msg("image stored")
	s.events.Publish(newEvent(EventImageAdded, collectionID, map[string]interface{}{
		"image": ref,
		"total": len(images),
	}))
	return ref, len(images), nil
}

// Stats counts images per contributor. Top holds at most three contributors
// ordered by image count; ties keep first-upload order.
func (s *CollectionService) Stats(ctx context.Context, collectionID string) (model.CollectionStats, error) {
	images, err := s.repo.ListImages(ctx, collectionID)
	if err != nil {
		return model.CollectionStats{}, fmt.Errorf("list images: %w", err)
	}

	var order []*model.Contributor
	byUser := map[string]*model.Contributor{}
	for _, img := range images {
		c, ok := byUser[img.UserID]
		if !ok {
			c = &model.Contributor{UserID: img.UserID, Username: img.Username}
			byUser[img.UserID] = c
			order = append(order, c)
		}
		c.Images++
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].Images > order[j].Images })

	top := make([]model.Contributor, 0, topContributors)
	for i := 0; i < len(order) && i < topContributors; i++ {
		top = append(top, *order[i])
	}
	return model.CollectionStats{
		CollectionID: collectionID,
		TotalImages:  len(images),
		Participants: len(order),
		Top:          top,
	}, nil
}

func (s *CollectionService) Collections(ctx context.Context) ([]string, error) {
	return s.repo.ListCollections(ctx)
}
