// Package server exposes the workspace over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/theo/internal/analytics"
	"github.com/user/theo/internal/collection"
	"github.com/user/theo/internal/intake"
	"github.com/user/theo/internal/media"
	"github.com/user/theo/internal/report"
	"github.com/user/theo/internal/types"
	"github.com/user/theo/internal/workspace"
)

// maxBodyBytes caps JSON and text request bodies.
const maxBodyBytes = 1 << 20

// Server routes API requests to a Workspace.
type Server struct {
	ws       *workspace.Workspace
	ingester *media.Ingester
	router   chi.Router
}

// New creates a Server. maxMediaBytes limits each uploaded image; <= 0 means no limit.
func New(ws *workspace.Workspace, maxMediaBytes int64) *Server {
	s := &Server{
		ws:       ws,
		ingester: media.NewIngester(ws, maxMediaBytes),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.refreshOnRead)
		r.Get("/events", listRecords(ws.Events()))
		r.Post("/events", createRecord(ws.AddEvent))
		r.Get("/ideas", listRecords(ws.Ideas()))
		r.Post("/ideas", createRecord(ws.AddIdea))
		r.Get("/messages", listRecords(ws.Messages()))
		r.Post("/messages", s.handleLogMessage)
		r.Get("/contacts", listRecords(ws.Contacts()))
		r.Post("/contacts", createRecord(ws.AddContact))
		r.Get("/media", listRecords(ws.Media()))
		r.Post("/media", s.handleUploadMedia)
		r.Delete("/{kind}/{id}", s.handleRemove)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/themes", s.handleThemes)
			r.Get("/weekly", s.handleWeekly)
			r.Get("/digest", s.handleDigest)
		})
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// refreshOnRead reloads the workspace before GET requests so records added
// by the CLI while the daemon runs are served.
func (s *Server) refreshOnRead(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			s.ws.Refresh(r.Context())
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps a workspace error to a status code.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, media.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listRecords serves a collection. ?order=recent lists most-recent-first and
// ?limit=N keeps the first N of the chosen order.
func listRecords[T types.Record[T]](c *collection.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if q := r.URL.Query().Get("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		items := c.List()
		switch order := r.URL.Query().Get("order"); order {
		case "", "insertion":
			if limit > 0 && limit < len(items) {
				items = items[:limit]
			}
		case "recent":
			items = collection.Newest(items, limit)
		default:
			writeError(w, http.StatusBadRequest, "unknown order: "+order)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// createRecord decodes a JSON form of type F and stores it with add.
func createRecord[F any, T any](add func(ctx context.Context, form F) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form F
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		rec, err := add(r.Context(), form)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

// handleLogMessage accepts JSON, plain text, or HTML. HTML is converted to
// markdown before it is logged.
func (s *Server) handleLogMessage(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var form intake.MessageForm
	switch mediaType {
	case "text/html", "text/plain":
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body failed")
			return
		}
		form.Text = string(body)
		if mediaType == "text/html" {
			md, err := htmltomarkdown.ConvertString(form.Text)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid HTML")
				return
			}
			form.Text = md
		}
	default:
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	msg, err := s.ws.LogMessage(r.Context(), form)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	themes := analytics.Themes(msg.Text, s.ws.Analytics().Rules())
	if themes == nil {
		themes = []string{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": msg,
		"themes":  themes,
	})
}

type uploadResponse struct {
	Stored  []types.MediaAsset `json:"stored"`
	Skipped []string           `json:"skipped"`
}

// handleUploadMedia stores each image in the multipart "files" field in
// order. Non-images are reported as skipped.
func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files")
		return
	}

	resp := uploadResponse{Stored: []types.MediaAsset{}, Skipped: []string{}}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		asset, ok, err := s.ingester.IngestReader(r.Context(), fh.Filename, f)
		f.Close()
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		if ok {
			resp.Stored = append(resp.Stored, asset)
		} else {
			resp.Skipped = append(resp.Skipped, fh.Filename)
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	kind, ok := types.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown kind")
		return
	}
	if err := s.ws.Remove(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Analytics().ThemeView())
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Analytics().WeeklyView())
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, report.Digest(s.ws.Analytics().Snapshot()))
}
