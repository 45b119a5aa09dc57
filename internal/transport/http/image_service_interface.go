package http

import "context"

// ImageServiceInterface defines the interface for image lookups as
// consumed by the image handler.
type ImageServiceInterface interface {
	Enabled() bool
	ImageURL(ctx context.Context, query string) (string, error)
}
