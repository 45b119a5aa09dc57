package services

import "errors"

// Coordination errors only this layer knows about. Dataset, cluster
// and image lookup failures reuse the sentinels in internal/errors so
// transport can map them to problem responses.
var (
	// ErrReloadInProgress reports a reload request racing an active one.
	ErrReloadInProgress = errors.New("dataset reload already in progress")
)
