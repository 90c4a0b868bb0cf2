// Package router is a thin chi wrapper with access logging and graceful
// shutdown.
package router

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type Router struct {
	mux    chi.Router
	logger *zap.Logger
}

// New returns a router with request ids, panic recovery and access logging
func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{mux: chi.NewRouter(), logger: logger}
	r.mux.Use(middleware.RequestID)
	r.mux.Use(r.accessLog)
	r.mux.Use(middleware.Recoverer)
	return r
}

// --- Register paths ---
func (r *Router) GET(path string, handler HandlerFunc)    { r.mux.Get(path, http.HandlerFunc(handler)) }
func (r *Router) POST(path string, handler HandlerFunc)   { r.mux.Post(path, http.HandlerFunc(handler)) }
func (r *Router) PUT(path string, handler HandlerFunc)    { r.mux.Put(path, http.HandlerFunc(handler)) }
func (r *Router) PATCH(path string, handler HandlerFunc)  { r.mux.Patch(path, http.HandlerFunc(handler)) }
func (r *Router) DELETE(path string, handler HandlerFunc) { r.mux.Delete(path, http.HandlerFunc(handler)) }

// ServeHTTP makes the router usable with httptest and custom servers
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Param returns a named path parameter, e.g. {id}
func Param(req *http.Request, name string) string {
	return chi.URLParam(req, name)
}

// Routes lists registered routes as "METHOD /path", sorted
func (r *Router) Routes() []string {
	var out []string
	_ = chi.Walk(r.mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, method+" "+route)
		return nil
	})
	sort.Strings(out)
	return out
}

// --- Start server ---

// Start serves on addr until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout
func (r *Router) Start(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return r.Serve(ctx, ln, shutdownTimeout)
}

// Serve is Start on an existing listener
func (r *Router) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("🚀 Server started", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	r.logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --- Access log ---
func (r *Router) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, req)

		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(req.Context())),
		}
		switch {
		case lrw.statusCode >= 500:
			r.logger.Error("request", fields...)
		case lrw.statusCode >= 400:
			r.logger.Warn("request", fields...)
		default:
			r.logger.Info("request", fields...)
		}
	})
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
