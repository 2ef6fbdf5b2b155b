package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Bookshelf/pkg/kit"
)

// Error codes carried in JSON error responses.
const (
	CodeDuplicate      = "duplicate_entry"
	CodeNotFound       = "not_found"
	CodeAlreadyInState = "already_in_state"
	CodeIOFailure      = "io_failure"
	CodeBadRequest     = "bad_request"
)

const maxBodyBytes = 1 << 20

// Pinger is implemented by libraries that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Catalog Library
	Log     *zap.Logger
}

type addReq struct {
	ID       string `json:"bid"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

type titleReq struct {
	Title string `json:"title"`
}

func (s *Server) ReadRoutes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	s.mountForms(r)

	r.Get("/books", s.list)
	r.Get("/books/search", s.find)
}

// MutationRoutes registers the routes that change the catalog. They are
// separate so NewHandler can put them behind the rate limiter.
func (s *Server) MutationRoutes(r chi.Router) {
	r.Post("/books", s.add)
	r.Post("/books/borrow", s.borrow)
	r.Post("/books/return", s.giveBack)
	r.Delete("/books", s.remove)

	s.mountFormMutations(r)
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Catalog.(Pinger)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	books, err := s.Catalog.List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, books)
}

func (s *Server) find(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if strings.TrimSpace(title) == "" {
		kit.WriteCodedError(w, r, http.StatusBadRequest, CodeBadRequest, "title required", nil)
		return
	}

	b, err := s.Catalog.Find(r.Context(), title)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var req addReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteCodedError(w, r, http.StatusBadRequest, CodeBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	st, err := ParseStatus(req.Status)
	if err != nil {
		kit.WriteCodedError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}

	rec := Record{
		ID:       strings.TrimSpace(req.ID),
		Title:    req.Title,
		Author:   req.Author,
		Category: req.Category,
		Status:   st,
	}
	if rec.ID == "" {
		rec.ID = NewID()
	}

	b, err := s.Catalog.Add(r.Context(), rec)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, b)
}

func (s *Server) borrow(w http.ResponseWriter, r *http.Request) {
	s.byTitle(w, r, s.Catalog.Borrow)
}

func (s *Server) giveBack(w http.ResponseWriter, r *http.Request) {
	s.byTitle(w, r, s.Catalog.Return)
}

func (s *Server) byTitle(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (Record, error)) {
	var req titleReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteCodedError(w, r, http.StatusBadRequest, CodeBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	b, err := fn(r.Context(), req.Title)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if strings.TrimSpace(title) == "" {
		kit.WriteCodedError(w, r, http.StatusBadRequest, CodeBadRequest, "title required", nil)
		return
	}

	b, err := s.Catalog.Remove(r.Context(), title)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		dup *DuplicateError
		nf  *NotFoundError
		se  *StateError
	)

	switch {
	case errors.As(err, &dup):
		kit.WriteCodedError(w, r, http.StatusConflict, CodeDuplicate, err.Error(),
			map[string]any{"title": dup.Title, "author": dup.Author})
	case errors.As(err, &nf):
		kit.WriteCodedError(w, r, http.StatusNotFound, CodeNotFound, err.Error(),
			map[string]any{"title": nf.Title})
	case errors.As(err, &se):
		kit.WriteCodedError(w, r, http.StatusConflict, CodeAlreadyInState, err.Error(),
			map[string]any{"title": se.Title, "status": string(se.Status)})
	case errors.Is(err, ErrIO):
		s.logger().Error("catalog store failed", zap.Error(err))
		kit.WriteCodedError(w, r, http.StatusInternalServerError, CodeIOFailure, "server error", nil)
	default:
		s.logger().Error("catalog operation failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}
