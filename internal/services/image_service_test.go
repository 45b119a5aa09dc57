package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "engineatlas/internal/errors"
	"engineatlas/internal/wikimedia"
)

// stubLookup answers from a fixed query → URL map and records the
// order in which queries arrive.
type stubLookup struct {
	urls   map[string]string
	err    error
	caught []string
}

func (s *stubLookup) ImageURL(_ context.Context, query string) (string, error) {
	s.caught = append(s.caught, query)
	if s.err != nil {
		return "", s.err
	}
	url, ok := s.urls[query]
	if !ok {
		return "", fmt.Errorf("%w: %s", wikimedia.ErrNotFound, query)
	}
	return url, nil
}

func newTestImageService(lookup ImageLookup) *ImageService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewImageService(lookup, logger)
}

func TestImageService_Disabled(t *testing.T) {
	svc := newTestImageService(nil)
	ctx := context.Background()

	assert.False(t, svc.Enabled())

	_, err := svc.ImageURL(ctx, "Toyota Corolla car")
	assert.ErrorIs(t, err, apierrors.ErrImageLookupDisabled)

	_, err = svc.FirstImage(ctx, []string{"Toyota Corolla car"})
	assert.ErrorIs(t, err, apierrors.ErrImageLookupDisabled)
}

func TestImageService_ImageURL(t *testing.T) {
	lookup := &stubLookup{urls: map[string]string{
		"BMW M3 car": "https://upload.wikimedia.org/bmw-m3.jpg",
	}}
	svc := newTestImageService(lookup)
	ctx := context.Background()

	assert.True(t, svc.Enabled())

	t.Run("resolves a known query", func(t *testing.T) {
		url, err := svc.ImageURL(ctx, "BMW M3 car")
		require.NoError(t, err)
		assert.Equal(t, "https://upload.wikimedia.org/bmw-m3.jpg", url)
	})

	t.Run("misses map to the image sentinel", func(t *testing.T) {
		_, err := svc.ImageURL(ctx, "Nonexistent Car 9000")
		assert.ErrorIs(t, err, apierrors.ErrImageNotFound)
	})
}

func TestImageService_FirstImage(t *testing.T) {
	ctx := context.Background()

	t.Run("first hit wins", func(t *testing.T) {
		lookup := &stubLookup{urls: map[string]string{
			"Toyota Corolla 1.8 car": "https://upload.wikimedia.org/corolla-18.jpg",
			"Toyota Corolla car":     "https://upload.wikimedia.org/corolla.jpg",
		}}
		svc := newTestImageService(lookup)

		url, err := svc.FirstImage(ctx, []string{"Toyota Corolla 1.8 car", "Toyota Corolla car"})
		require.NoError(t, err)
		assert.Equal(t, "https://upload.wikimedia.org/corolla-18.jpg", url)
		assert.Equal(t, []string{"Toyota Corolla 1.8 car"}, lookup.caught)
	})

	t.Run("falls through misses in order", func(t *testing.T) {
		lookup := &stubLookup{urls: map[string]string{
			"Toyota Corolla car": "https://upload.wikimedia.org/corolla.jpg",
		}}
		svc := newTestImageService(lookup)

		url, err := svc.FirstImage(ctx, []string{"Toyota Corolla 1.8 car", "Toyota Corolla car"})
		require.NoError(t, err)
		assert.Equal(t, "https://upload.wikimedia.org/corolla.jpg", url)
		assert.Equal(t, []string{"Toyota Corolla 1.8 car", "Toyota Corolla car"}, lookup.caught)
	})

	t.Run("all misses report not found", func(t *testing.T) {
		svc := newTestImageService(&stubLookup{})

		_, err := svc.FirstImage(ctx, []string{"one", "two"})
		assert.ErrorIs(t, err, apierrors.ErrImageNotFound)
	})

	t.Run("transport errors stop the fallback chain", func(t *testing.T) {
		boom := errors.New("upstream unreachable")
		svc := newTestImageService(&stubLookup{err: boom})

		_, err := svc.FirstImage(ctx, []string{"one", "two"})
		assert.ErrorIs(t, err, boom)
	})
}
