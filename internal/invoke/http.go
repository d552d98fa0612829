package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/recipeui/fetchbridge/internal/logger"
	"github.com/recipeui/fetchbridge/internal/proxy"
)

// maxInvocationBytes bounds an invocation body; a var so tests can lower it.
var maxInvocationBytes int64 = 32 << 20

// errorBody is the JSON shape of a failed invocation over HTTP.
type errorBody struct {
	Error string `json:"error"`
}

// NewRouter returns the HTTP surface for the web build.
func NewRouter(h Handler, log logger.Logger) http.Handler {
	log = logger.Ensure(log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok")
	})
	r.Options("/invoke/{cmd}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/invoke/{cmd}", invokeHandler(h, log))
	r.Get("/exchanges/{id}", exchangeHandler(h, log))
	return r
}

func invokeHandler(h Handler, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cmd := chi.URLParam(r, "cmd"); cmd != CommandFetchWrapper {
			writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown command %q", cmd)})
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInvocationBytes))
		if err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeJSON(w, status, errorBody{Error: err.Error()})
			return
		}
		inv, err := decodeInvocation(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}

		invocationID, rec, err := h.FetchWrapper(r.Context(), inv.URL, inv.Payload)
		if invocationID != "" {
			w.Header().Set(InvocationHeader, invocationID)
		}
		if err != nil {
			status := statusFor(err)
			log.DebugObj("invocation failed", "invoke_error", map[string]any{
				"invocation_id": invocationID,
				"status":        status,
				"error":         err.Error(),
			})
			writeJSON(w, status, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func exchangeHandler(h Handler, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ex, found, err := h.Exchange(r.Context(), id)
		switch {
		case err != nil:
			log.ErrorObj("exchange lookup failed", "invoke_error", map[string]any{
				"invocation_id": id,
				"error":         err.Error(),
			})
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		case !found:
			writeJSON(w, http.StatusNotFound, errorBody{Error: ErrExchangeNotFound.Error()})
		default:
			writeJSON(w, http.StatusOK, ex)
		}
	}
}

// statusFor maps a proxy failure onto the HTTP status returned to the browser.
func statusFor(err error) int {
	switch proxy.StageOf(err) {
	case proxy.StageMethod, proxy.StageForm:
		return http.StatusBadRequest
	case proxy.StageTransport, proxy.StageDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", InvocationHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// ListenAndServe runs the HTTP surface on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	log = logger.Ensure(log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoObj("http invoke server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		log.InfoObj("http invoke server stopped", "reason", ctx.Err().Error())
		return nil
	}
}
