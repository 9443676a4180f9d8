package events

import (
	"time"

	"github.com/hanpama/sdlresolver/internal/cachemeta"
)

// RequestStart is emitted when the GraphQL endpoint receives a request.
type RequestStart struct {
	Method string
	Path   string
}

// RequestFinish closes a RequestStart. Cache is the merged metadata of the
// response, zero when no document was executed.
type RequestFinish struct {
	Method   string
	Path     string
	Status   int
	Cache    cachemeta.Metadata
	Duration time.Duration
}

// OperationStart is emitted before one document of a request executes.
// Document is the hash the document cache keys it by.
type OperationStart struct {
	Document      uint64
	OperationName string
	OperationType string
}

type OperationFinish struct {
	Document      uint64
	OperationName string
	OperationType string
	Errors        []error
	Cache         cachemeta.Metadata
	Duration      time.Duration
}
