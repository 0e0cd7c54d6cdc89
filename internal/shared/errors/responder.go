package errors

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the media type for Problem Details responses.
const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper turns a service error into a problem, reporting false when it does not recognise err.
type ErrorMapper func(err error) (ProblemDetail, bool)

// Sentinel pairs a sentinel error with the problem template it maps to.
type Sentinel struct {
	Err     error
	Problem ProblemDetail
}

// MapSentinels builds a mapper that checks rules in order with errors.Is. The matched
// error's message becomes the problem detail.
func MapSentinels(rules ...Sentinel) ErrorMapper {
	return func(err error) (ProblemDetail, bool) {
		for _, rule := range rules {
			if errors.Is(err, rule.Err) {
				return rule.Problem.WithDetail(err.Error()), true
			}
		}
		return ProblemDetail{}, false
	}
}

// Responder writes problem responses, running errors through its mappers first.
type Responder struct {
	baseURI string
	mappers []ErrorMapper
	logger  *slog.Logger
}

// ResponderOption customises a Responder.
type ResponderOption func(*Responder)

// WithBaseURI prefixes relative problem types with uri.
func WithBaseURI(uri string) ResponderOption {
	return func(r *Responder) { r.baseURI = uri }
}

// WithLogger records errors no mapper recognised. Without it the process default logger is used.
func WithLogger(logger *slog.Logger) ResponderOption {
	return func(r *Responder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResponder creates a responder trying mappers in order.
func NewResponder(mappers []ErrorMapper, opts ...ResponderOption) *Responder {
	r := &Responder{mappers: mappers}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond sends problem with the problem+json content type.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.baseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.baseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

// RespondError maps err to a problem. A ProblemDetail is sent as is; anything no mapper
// recognises is logged and answered with a bare 500 so storage errors do not leak.
func (r *Responder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.Respond(c, problem)
			return
		}
	}
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.Respond(c, problem)
		return
	}
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(c.Request.Context(), "unhandled service error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
	)
	r.Respond(c, ErrInternal)
}
