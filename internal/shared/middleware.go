package shared

import (
	"context"
	"log/slog"
	"net/http"
)

type responseWriterWithCommit struct {
	http.ResponseWriter
	sess          *Session
	manager       *SessionManager
	ctx           context.Context
	req           *http.Request
	headerWritten bool
}

func (w *responseWriterWithCommit) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		if err := w.manager.Commit(w.ctx, w.ResponseWriter, w.req, w.sess); err != nil {
			w.manager.logger.Error("commit session", slog.String("session", w.sess.ID), slog.Any("error", err))
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWithCommit) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriterWithCommit) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Middleware resolves the session before next runs and persists it when the
// response header is written. Handlers that write nothing leave storage untouched.
func (sm *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, err := sm.Load(ctx, r)
		if err != nil {
			sm.logger.Error("failed to load session", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		ctx = ContextWithSession(ctx, sess)

		wrapped := &responseWriterWithCommit{
			ResponseWriter: w,
			sess:           sess,
			manager:        sm,
			ctx:            context.WithoutCancel(ctx),
			req:            r.WithContext(ctx),
		}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}
