package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sync"
	"time"

	"chat-style-studio/internal/model"
	"chat-style-studio/internal/style"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Minimum collection sizes and sample sizes per operation.
const (
	MinSampleImages   = 1
	MinGenerateImages = 2
	MinMixImages      = 3
	MinCollageImages  = style.CollageMin

	sampleStyleImages = 3
	generateImages    = 3
	mixImages         = 4
)

type GenerationOptions struct {
	CanvasSize     int
	JPEGQuality    int
	CollageQuality int
	Seed           int64
	Parallelism    int
}

// Generation is a persisted result together with the encoded image.
type Generation struct {
	Ref     model.GenerationRef
	Image   []byte
	Style   model.StyleDescriptor
	Outcome style.Outcome
	Effects []string
}

type StyleService struct {
	repo      CollectionRepository
	blobs     BlobStore
	extractor *style.Extractor
	synth     *style.Synthesizer
	captions  *Captions
	events    EventPublisher
	logger    zerolog.Logger
	opts      GenerationOptions

	mu   sync.Mutex
	seed *rand.Rand
}

func NewStyleService(repo CollectionRepository, blobs BlobStore, extractor *style.Extractor, captions *Captions, events EventPublisher, logger zerolog.Logger, opts GenerationOptions) *StyleService {
	if events == nil {
		events = nopPublisher{}
	}
	if opts.CanvasSize <= 0 {
		opts.CanvasSize = style.TargetSize
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 85
	}
	if opts.CollageQuality <= 0 {
		opts.CollageQuality = 95
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	return &StyleService{
		repo:      repo,
		blobs:     blobs,
		extractor: extractor,
		synth:     style.NewSynthesizer(logger),
		captions:  captions,
		events:    events,
		logger:    logger,
		opts:      opts,
		seed:      style.NewRand(opts.Seed),
	}
}

// callRand hands each call its own source so concurrent calls never share
// one. With a fixed seed the sequence of calls is reproducible.
func (s *StyleService) callRand() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rand.New(rand.NewSource(s.seed.Int63()))
}

// SampleStyle pools the style of up to three randomly chosen images. It
// returns the descriptor and the number of images sampled.
func (s *StyleService) SampleStyle(ctx context.Context, collectionID string) (model.StyleDescriptor, int, error) {
	images, err := s.images(ctx, "style", collectionID, MinSampleImages)
	if err != nil {
		return model.StyleDescriptor{}, 0, err
	}
	rng := s.callRand()
	picked := sample(images, sampleStyleImages, rng)
	descs, err := s.extractAll(ctx, picked, rng)
	if err != nil {
		return model.StyleDescriptor{}, 0, err
	}
	return style.Aggregate(descs, style.ColorCapSample), len(picked), nil
}

// Generate synthesizes a new image in the pooled style of the collection. The
// caption counts every image in the collection, not only the sampled ones.
func (s *StyleService) Generate(ctx context.Context, collectionID, locale string) (Generation, error) {
	images, err := s.images(ctx, string(model.KindGenerate), collectionID, MinGenerateImages)
	if err != nil {
		return Generation{}, err
	}
	rng := s.callRand()
	desc, err := s.pooled(ctx, images, generateImages, style.ColorCapChat, rng)
	if err != nil {
		return Generation{}, err
	}
	return s.synthesize(ctx, collectionID, model.KindGenerate, desc, len(images), s.captions.Generate(locale, len(images)), rng)
}

// Mix blends the styles of up to four random images with a wider palette.
func (s *StyleService) Mix(ctx context.Context, collectionID, locale string) (Generation, error) {
	images, err := s.images(ctx, string(model.KindMix), collectionID, MinMixImages)
	if err != nil {
		return Generation{}, err
	}
	rng := s.callRand()
	n := min(mixImages, len(images))
	desc, err := s.pooled(ctx, images, mixImages, style.ColorCapMix, rng)
	if err != nil {
		return Generation{}, err
	}
	return s.synthesize(ctx, collectionID, model.KindMix, desc, n, s.captions.Mix(locale, n), rng)
}

// Collage tiles the most recent images of the collection.
func (s *StyleService) Collage(ctx context.Context, collectionID, locale string) (Generation, error) {
	images, err := s.images(ctx, string(model.KindCollage), collectionID, MinCollageImages)
	if err != nil {
		return Generation{}, err
	}
	if len(images) > style.CollageMaxTile {
		images = images[len(images)-style.CollageMaxTile:]
	}
	data := make([][]byte, len(images))
	for i, ref := range images {
		b, err := s.blobs.Read(ctx, ref.BlobKey)
		if err != nil {
			return Generation{}, fmt.Errorf("read image %s: %w", ref.ID, err)
		}
		data[i] = b
	}

	canvas, err := style.CollageBytes(data)
	if err != nil {
		return Generation{}, fmt.Errorf("collage: %w", err)
	}
	out, err := style.EncodeJPEG(canvas, s.opts.CollageQuality)
	if err != nil {
		return Generation{}, fmt.Errorf("encode collage: %w", err)
	}
	gen := Generation{Image: out, Outcome: style.OutcomeFiltered}
	return s.persist(ctx, collectionID, model.KindCollage, gen, len(images), s.captions.Collage(locale, len(images)))
}

func (s *StyleService) images(ctx context.Context, op, collectionID string, required int) ([]model.ImageRef, error) {
	images, err := s.repo.ListImages(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	if len(images) < required {
		return nil, &CountError{Op: op, Required: required, Have: len(images)}
	}
	return images, nil
}

func (s *StyleService) pooled(ctx context.Context, images []model.ImageRef, k, colorCap int, rng *rand.Rand) (model.StyleDescriptor, error) {
	descs, err := s.extractAll(ctx, sample(images, k, rng), rng)
	if err != nil {
		return model.StyleDescriptor{}, err
	}
	return style.Aggregate(descs, colorCap), nil
}

// extractAll loads and analyses images concurrently. Per-image sources are
// drawn from rng up front so results do not depend on scheduling. A missing
// blob degrades to the random fallback descriptor like any unreadable image.
func (s *StyleService) extractAll(ctx context.Context, refs []model.ImageRef, rng *rand.Rand) ([]model.StyleDescriptor, error) {
	seeds := make([]int64, len(refs))
	for i := range seeds {
		seeds[i] = rng.Int63()
	}
	descs := make([]model.StyleDescriptor, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			data, err := s.blobs.Read(gctx, ref.BlobKey)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn().Err(err).Str("image", ref.ID).Msg("image unreadable, using random style")
			}
			descs[i] = s.extractor.ExtractBytes(data, rand.New(rand.NewSource(seeds[i])))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return descs, nil
}

func (s *StyleService) synthesize(ctx context.Context, collectionID string, kind model.GenerationKind, desc model.StyleDescriptor, count int, caption string, rng *rand.Rand) (Generation, error) {
	res := s.synth.Synthesize(desc, image.Pt(s.opts.CanvasSize, s.opts.CanvasSize), rng)
	out, err := style.EncodeJPEG(res.Image, s.opts.JPEGQuality)
	if err != nil {
		return Generation{}, fmt.Errorf("encode image: %w", err)
	}
	gen := Generation{Image: out, Style: desc, Outcome: res.Outcome, Effects: res.Effects}
	return s.persist(ctx, collectionID, kind, gen, count, caption)
}

func (s *StyleService) persist(ctx context.Context, collectionID string, kind model.GenerationKind, gen Generation, count int, caption string) (Generation, error) {
	id := uuid.NewString()
	key, err := s.blobs.Write(ctx, fmt.Sprintf("generated/%s/%s.jpg", collectionID, id), gen.Image)
	if err != nil {
		return Generation{}, fmt.Errorf("store generation: %w", err)
	}
	gen.Ref = model.GenerationRef{
		ID:           id,
		CollectionID: collectionID,
		Kind:         kind,
		BlobKey:      key,
		SourceCount:  count,
		Caption:      caption,
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := s.repo.AddGeneration(ctx, gen.Ref); err != nil {
		return Generation{}, fmt.Errorf("record generation: %w", err)
	}

	s.logger.Info().
		Str("collection", collectionID).
		Str("kind", string(kind)).
		Str("outcome", string(gen.Outcome)).
		Strs("effects", gen.Effects).
		Int("sources", count).
		Msg("generation stored")
	s.events.Publish(newEvent(EventGenerationCompleted, collectionID, map[string]interface{}{
		"generation": gen.Ref,
		"palette":    style.PaletteHex(gen.Style.DominantColors),
		"outcome":    gen.Outcome,
	}))
	return gen, nil
}

// Stored returns a previously persisted generation and its image bytes.
func (s *StyleService) Stored(ctx context.Context, collectionID, id string) (model.GenerationRef, []byte, error) {
	ref, err := s.repo.GetGeneration(ctx, collectionID, id)
	if err != nil {
		return model.GenerationRef{}, nil, err
	}
	b, err := s.blobs.Read(ctx, ref.BlobKey)
	if err != nil {
		return model.GenerationRef{}, nil, fmt.Errorf("read generation: %w", err)
	}
	return ref, b, nil
}

// Run dispatches a generation by kind.
func (s *StyleService) Run(ctx context.Context, kind model.GenerationKind, collectionID, locale string) (Generation, error) {
	switch kind {
	case model.KindGenerate:
		return s.Generate(ctx, collectionID, locale)
	case model.KindMix:
		return s.Mix(ctx, collectionID, locale)
	case model.KindCollage:
		return s.Collage(ctx, collectionID, locale)
	default:
		return Generation{}, fmt.Errorf("%w: unknown generation kind %q", ErrInvalidInput, kind)
	}
}

// PublishFailure announces a generation that could not be produced.
func (s *StyleService) PublishFailure(collectionID string, kind model.GenerationKind, jobID string, err error) {
	payload := map[string]interface{}{
		"kind":  kind,
		"job":   jobID,
		"error": err.Error(),
	}
	var cerr *CountError
	if errors.As(err, &cerr) {
		payload["required"] = cerr.Required
		payload["have"] = cerr.Have
	}
	s.events.Publish(newEvent(EventGenerationFailed, collectionID, payload))
}

// sample picks up to k distinct images uniformly at random, in random order.
func sample(images []model.ImageRef, k int, rng *rand.Rand) []model.ImageRef {
	if k > len(images) {
		k = len(images)
	}
	out := make([]model.ImageRef, 0, k)
	for _, i := range rng.Perm(len(images))[:k] {
		out = append(out, images[i])
	}
	return out
}
