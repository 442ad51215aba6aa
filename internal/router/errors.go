package router

import (
	"net/http"

	"github.com/patric-chuzhbe/usersapi/internal/apperror"
	"github.com/patric-chuzhbe/usersapi/internal/logger"
	"github.com/patric-chuzhbe/usersapi/internal/models"
	"github.com/patric-chuzhbe/usersapi/internal/requestid"
)

// WriteError renders err as the JSON error body. Errors that carry no status
// are logged in full and answered with a generic 500.
func WriteError(response http.ResponseWriter, request *http.Request, err error) {
	requestID := requestid.FromContext(request.Context())

	appErr, ok := apperror.As(err)
	if ok {
		logger.Log.Warnw(
			"request failed",
			"requestId", requestID,
			"method", request.Method,
			"path", request.URL.Path,
			"status", appErr.Status,
			"error", appErr.Message,
		)
	} else {
		logger.Log.Errorw(
			"unexpected error",
			"requestId", requestID,
			"method", request.Method,
			"path", request.URL.Path,
			"error", err,
		)
		appErr = apperror.Internal()
	}

	writeJSON(response, appErr.Status, models.ErrorResponse{
		Error:     appErr.Kind,
		Message:   appErr.Message,
		RequestID: requestID,
	})
}

func (router *Router) writeError(response http.ResponseWriter, request *http.Request, err error) {
	WriteError(response, request, err)
}

// NotFound answers unknown routes and unsupported methods.
func (router *Router) NotFound(response http.ResponseWriter, request *http.Request) {
	router.writeError(response, request, apperror.RouteNotFound())
}

// Forbidden answers clients outside the trusted subnet.
func (router *Router) Forbidden(response http.ResponseWriter, request *http.Request) {
	router.writeError(response, request, apperror.Forbidden(apperror.MsgForbidden))
}

// TooManyRequests is the reject handler for the rate limiter.
func TooManyRequests(response http.ResponseWriter, request *http.Request) {
	WriteError(response, request, apperror.TooManyRequests(apperror.MsgTooManyRequests))
}

func (router *Router) rejectGzip(response http.ResponseWriter, request *http.Request, err error) {
	logger.Log.Debugw("gzip request body rejected", "error", err)
	router.writeError(response, request, apperror.BadRequest(apperror.MsgInvalidGzip))
}

// recoverer turns a panic in a handler into a 500 response.
func (router *Router) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Log.Errorw(
				"handler panicked",
				"requestId", requestid.FromContext(request.Context()),
				"panic", rec,
			)
			writeJSON(response, http.StatusInternalServerError, models.ErrorResponse{
				Error:     apperror.KindInternal,
				Message:   apperror.MsgUnexpected,
				RequestID: requestid.FromContext(request.Context()),
			})
		}()

		next.ServeHTTP(response, request)
	})
}
