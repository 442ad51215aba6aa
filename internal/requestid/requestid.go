// Package requestid tags every request with a correlation id. The id is
// taken from the incoming header when the caller sent one, generated
// otherwise, echoed in the response header and stored in the request
// context for handlers and loggers.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultHeader is the header read from requests and written to responses.
const DefaultHeader = "X-Request-ID"

// Unknown is reported when a context carries no id.
const Unknown = "unknown"

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// IDKey is the context key holding the request id.
const IDKey ContextKey = "requestID"

// Annotator is the middleware that assigns request ids.
type Annotator struct {
	header   string
	generate func() string
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithGenerator replaces the UUID generator, mostly for tests.
func WithGenerator(generate func() string) Option {
	return func(a *Annotator) {
		a.generate = generate
	}
}

// New creates an Annotator using header, or DefaultHeader when header is empty.
func New(header string, opts ...Option) *Annotator {
	if header == "" {
		header = DefaultHeader
	}
	a := &Annotator{
		header:   header,
		generate: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Header returns the header name the Annotator uses.
func (a *Annotator) Header() string {
	return a.header
}

// Handler sets the response header before the wrapped handler runs, so the
// id is present on every answer, errors included.
func (a *Annotator) Handler(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		id := request.Header.Get(a.header)
		if id == "" {
			id = a.generate()
			request.Header.Set(a.header, id)
		}

		response.Header().Set(a.header, id)

		h.ServeHTTP(response, request.WithContext(WithID(request.Context(), id)))
	}

	return http.HandlerFunc(middleware)
}

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, IDKey, id)
}

// FromContext returns the request id, or Unknown when none was set.
func FromContext(ctx context.Context) string {
	id, ok := ctx.Value(IDKey).(string)
	if !ok || id == "" {
		return Unknown
	}

	return id
}
