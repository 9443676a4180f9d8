package events

import "time"

// LoaderFlush is emitted after a batched loader fetched one batch.
type LoaderFlush struct {
	EntityType string
	Requested  int
	Found      int
	Err        error
	Start      time.Time
	Duration   time.Duration
}
