package events

import "time"

// ProducerStart is emitted before a data producer computes its value.
// Invocation pairs it with the matching ProducerFinish.
type ProducerStart struct {
	Invocation uint64
	Producer   string
	Type       string
	Field      string
}

// ProducerFinish is emitted once a producer returned. Deferred is true when
// the producer handed back a value that settles later.
type ProducerFinish struct {
	Invocation uint64
	Producer   string
	Deferred   bool
	Err        error
	Duration   time.Duration
}
