// Package logger provides structured logging functionality
// using the Uber zap logging library. It supports log levels, optional log
// files and an HTTP access-log middleware that reports the request id.
package logger

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/patric-chuzhbe/usersapi/internal/requestid"
)

type responseData struct {
	status int
	size   int
}

type loggingResponseWriter struct {
	http.ResponseWriter
	responseData *responseData
}

// Log is a global SugaredLogger instance from the zap logging library.
// Log should be initialized via Init(); until then it discards everything.
var Log = zap.NewNop().Sugar()

var initialized bool

// Write passes data through and counts the response size.
func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size
	return size, err
}

// WriteHeader writes the HTTP status code to the response and remembers it.
func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.responseData.status = statusCode
}

// InitOption configures Init.
type InitOption func(*initOptions)

type initOptions struct {
	production bool
	file       string
	errorFile  string
}

// WithProduction switches to the JSON production encoder.
func WithProduction(production bool) InitOption {
	return func(options *initOptions) {
		options.production = production
	}
}

// WithFile additionally writes every entry to path.
func WithFile(path string) InitOption {
	return func(options *initOptions) {
		options.file = path
	}
}

// WithErrorFile additionally writes error-level entries to path.
func WithErrorFile(path string) InitOption {
	return func(options *initOptions) {
		options.errorFile = path
	}
}

// Init initializes the global logger configuration.
// It sets the output destinations and global log level.
func Init(level string, optionsProto ...InitOption) error {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	if options.production {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl

	if options.file != "" {
		if err := ensureDir(options.file); err != nil {
			return err
		}
		cfg.OutputPaths = append(cfg.OutputPaths, options.file)
	}

	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	if options.errorFile != "" {
		errorCore, err := newErrorFileCore(options.errorFile)
		if err != nil {
			return err
		}
		zl = zl.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, errorCore)
		}))
	}

	Log = zl.Sugar()
	initialized = true

	return nil
}

// Initialized reports whether Init has completed successfully.
func Initialized() bool {
	return initialized
}

func newErrorFileCore(path string) (zapcore.Core, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	sink, _, err := zap.Open(path)
	if err != nil {
		return nil, err
	}

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		zapcore.ErrorLevel,
	), nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	return os.MkdirAll(dir, 0o755)
}

// Sync flushes any buffered log entries to the output.
// It should be called when shutting down to ensure all logs are written.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// WithLoggingHTTPMiddleware wraps an http.Handler with an access log entry
// per request: request id, method, uri, status, duration and size.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		responseData := &responseData{
			status: http.StatusOK,
			size:   0,
		}
		lw := loggingResponseWriter{
			ResponseWriter: w,
			responseData:   responseData,
		}
		h.ServeHTTP(&lw, r)

		duration := time.Since(start)

		Log.Infow(
			"request served",
			"requestId", requestid.FromContext(r.Context()),
			"method", r.Method,
			"uri", r.RequestURI,
			"status", responseData.status,
			"duration", duration,
			"size", responseData.size,
		)
	}

	return http.HandlerFunc(logFn)
}
