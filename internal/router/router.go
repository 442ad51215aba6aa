// Package router wires the HTTP routes, middleware chain and handlers of the
// users API.
package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/usersapi/internal/gzippedhttp"
	"github.com/patric-chuzhbe/usersapi/internal/logger"
	"github.com/patric-chuzhbe/usersapi/internal/models"
	"github.com/patric-chuzhbe/usersapi/internal/requestid"
)

const (
	rootMessage  = "User Management API working!"
	maxBodyBytes = 1 << 20
)

type usersService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	CreateUser(ctx context.Context, newUser models.NewUser) (models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

type bodyValidator interface {
	ValidateCreate(body map[string]json.RawMessage) (models.NewUser, error)
	ValidateUpdate(body map[string]json.RawMessage) (models.UserPatch, error)
}

type metricsCollector interface {
	InstrumentHandler(h http.Handler) http.Handler
	Handler() http.Handler
}

type rateLimiter interface {
	Handler(next http.Handler) http.Handler
}

type trustedGuard interface {
	Guard(reject http.HandlerFunc) func(http.Handler) http.Handler
}

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	service   usersService
	validator bodyValidator
}

type initOptions struct {
	annotator    *requestid.Annotator
	metrics      metricsCollector
	metricsGuard trustedGuard
	rateLimiter  rateLimiter
	enableGzip   bool
}

// Option configures the handler returned by New.
type Option func(*initOptions)

// WithRequestIDHeader sets the correlation id header name.
func WithRequestIDHeader(header string) Option {
	return func(options *initOptions) {
		options.annotator = requestid.New(header)
	}
}

// WithAnnotator replaces the request id middleware.
func WithAnnotator(annotator *requestid.Annotator) Option {
	return func(options *initOptions) {
		options.annotator = annotator
	}
}

// WithMetrics instruments every request and serves GET /metrics to clients
// accepted by guard.
func WithMetrics(m metricsCollector, guard trustedGuard) Option {
	return func(options *initOptions) {
		options.metrics = m
		options.metricsGuard = guard
	}
}

// WithRateLimiter throttles every request through rl.
func WithRateLimiter(rl rateLimiter) Option {
	return func(options *initOptions) {
		options.rateLimiter = rl
	}
}

// WithGzip enables gzip request bodies and compressed responses.
func WithGzip(enable bool) Option {
	return func(options *initOptions) {
		options.enableGzip = enable
	}
}

// New builds the HTTP handler.
func New(service usersService, validator bodyValidator, optionsProto ...Option) http.Handler {
	options := &initOptions{
		annotator: requestid.New(requestid.DefaultHeader),
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	myRouter := &Router{
		service:   service,
		validator: validator,
	}

	router := chi.NewRouter()
	router.Use(
		options.annotator.Handler,
		logger.WithLoggingHTTPMiddleware,
		myRouter.recoverer,
	)
	if options.metrics != nil {
		router.Use(options.metrics.InstrumentHandler)
	}
	if options.rateLimiter != nil {
		router.Use(options.rateLimiter.Handler)
	}
	if options.enableGzip {
		router.Use(
			gzippedhttp.UngzipRequest(myRouter.rejectGzip),
			gzippedhttp.GzipResponse,
		)
	}

	router.NotFound(myRouter.NotFound)
	router.MethodNotAllowed(myRouter.NotFound)

	router.Get(`/`, myRouter.GetRoot)
	router.Get(`/ping`, myRouter.GetPing)

	if options.metrics != nil {
		metricsHandler := options.metrics.Handler()
		if options.metricsGuard != nil {
			metricsHandler = options.metricsGuard.Guard(myRouter.Forbidden)(metricsHandler)
		}
		router.Method(http.MethodGet, `/metrics`, metricsHandler)
	}

	router.Mount(`/users`, myRouter.usersRoutes())
	router.Mount(`/api/users`, myRouter.usersRoutes())

	return router
}

func (router *Router) usersRoutes() chi.Router {
	users := chi.NewRouter()
	users.NotFound(router.NotFound)
	users.MethodNotAllowed(router.NotFound)

	users.Get(`/`, router.GetUsers)
	users.Post(`/`, router.PostUsers)
	users.Get(`/{id}`, router.GetUser)
	users.Put(`/{id}`, router.PutUser)
	users.Delete(`/{id}`, router.DeleteUser)

	return users
}

// GetRoot answers with a fixed banner so that the service can be probed
// without touching the storage.
func (router *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	logger.Log.Debugw("root endpoint accessed", "requestId", requestid.FromContext(request.Context()))
	writeJSON(response, http.StatusOK, models.MessageResponse{Message: rootMessage})
}

// GetPing reports storage health and the number of stored users.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.service.Ping(request.Context()); err != nil {
		router.writeError(response, request, err)
		return
	}

	count, err := router.service.CountUsers(request.Context())
	if err != nil {
		router.writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.PingResponse{Status: "ok", Users: count})
}

func writeJSON(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json; charset=utf-8")
	response.WriteHeader(status)

	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Errorw("response encoding failed", "status", status, "error", err)
	}
}
