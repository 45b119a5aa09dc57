package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apierrors "engineatlas/internal/errors"
	"engineatlas/internal/wikimedia"
)

// ImageLookup resolves a free-text query to an image URL. The
// Wikipedia client implements it.
type ImageLookup interface {
	ImageURL(ctx context.Context, query string) (string, error)
}

// ImageService wraps the image lookup behind the feature switch and
// translates client errors to the shared sentinels.
type ImageService struct {
	client ImageLookup
	logger *slog.Logger
}

// NewImageService returns a service over the given lookup client. A
// nil client means lookups are disabled; every call then fails with
// ErrImageLookupDisabled.
func NewImageService(client ImageLookup, logger *slog.Logger) *ImageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageService{
		client: client,
		logger: logger.With(slog.String("component", "image_service")),
	}
}

// Enabled reports whether lookups are available.
func (s *ImageService) Enabled() bool { return s.client != nil }

// ImageURL resolves one query.
func (s *ImageService) ImageURL(ctx context.Context, query string) (string, error) {
	if s.client == nil {
		return "", apierrors.ErrImageLookupDisabled
	}
	url, err := s.client.ImageURL(ctx, query)
	if err != nil {
		if errors.Is(err, wikimedia.ErrNotFound) {
			return "", fmt.Errorf("%w: %q", apierrors.ErrImageNotFound, query)
		}
		return "", err
	}
	return url, nil
}

// FirstImage tries the queries in order and returns the first hit.
// The engine card's query list runs most-specific first, so the result
// is the best available picture for that engine.
func (s *ImageService) FirstImage(ctx context.Context, queries []string) (string, error) {
	if s.client == nil {
		return "", apierrors.ErrImageLookupDisabled
	}
	for _, q := range queries {
		url, err := s.client.ImageURL(ctx, q)
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, wikimedia.ErrNotFound) {
			return "", err
		}
	}
	return "", apierrors.ErrImageNotFound
}
