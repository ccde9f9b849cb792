package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ValentinKolb/recstore/rpc/common"
	"github.com/ValentinKolb/recstore/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("transport/rpc")

// RequestIDHeader carries the id of a request, generated by the client or the server
const RequestIDHeader = "X-Request-Id"

// maxBodyBytes limits the size of a request body
const maxBodyBytes = 1 << 20

func NewHttpServerTransport() transport.IRPCServerTransport {
	return &httpServerTransport{}
}

type httpServerTransport struct {
	handler transport.ServerHandleFunc
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *httpServerTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	srv := &http.Server{
		Addr:              config.Endpoint,
		Handler:           NewHandler(t.handler, config.LogLevel == "debug"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		Logger.Infof("Starting HTTP server on %s", config.Endpoint)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		Logger.Infof("Stopping HTTP server on %s", config.Endpoint)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// NewHandler returns the http.Handler of the RPC server.
// Requests are posted to /{serviceId}, metrics are served at /metrics in the prometheus format.
func NewHandler(handle transport.ServerHandleFunc, debug bool) http.Handler {
	mux := http.NewServeMux()

	rpc := func(w http.ResponseWriter, r *http.Request) { handleRequest(handle, w, r) }
	if debug {
		mux.HandleFunc("POST /{serviceId}", loggerMiddleware(rpc))
	} else {
		mux.HandleFunc("POST /{serviceId}", rpc)
	}
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return requestIDMiddleware(mux)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleRequest handles incoming HTTP requests and writes the response to the writer
func handleRequest(handle transport.ServerHandleFunc, w http.ResponseWriter, r *http.Request) {
	// Parse serviceId from request
	serviceId, err := strconv.ParseUint(r.PathValue("serviceId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid serviceId", http.StatusBadRequest)
		return
	}

	// Read request body
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	// Send the handler
	resp := handle(serviceId, body)

	// Write response
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err = w.Write(resp); err != nil {
		Logger.Warningf("failed to write response (request %s): %v", w.Header().Get(RequestIDHeader), err)
	}
}

// --------------------------------------------------------------------------
// Middleware (request ids, logging)
// --------------------------------------------------------------------------

// requestIDMiddleware makes sure every request has an id and echoes it in the response
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests and records their duration
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Process request
		next.ServeHTTP(rw, r)

		// Log the request
		duration := time.Since(start)
		metrics.GetOrCreateHistogram(fmt.Sprintf(`recstore_http_request_duration_seconds{status="%d"}`, rw.statusCode)).Update(duration.Seconds())
		Logger.Debugf("%s %s [%s] => %d took %s", r.Method, r.URL.Path, r.Header.Get(RequestIDHeader), rw.statusCode, duration)
	}
}
