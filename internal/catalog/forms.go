package catalog

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTmpl = template.Must(
	template.New("index.html").
		Funcs(template.FuncMap{"describe": Describe}).
		ParseFS(templateFS, "templates/index.html"),
)

type flash struct {
	Class string
	Text  string
}

type page struct {
	Flash   *flash
	Found   *Record
	Columns []string
	Books   []Record
}

func (s *Server) mountForms(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { s.render(w, r, http.StatusOK, page{}) })
	r.Post("/ui/search", s.formSearch)
}

func (s *Server) mountFormMutations(r chi.Router) {
	r.Post("/ui/add", s.formAdd)
	r.Post("/ui/borrow", s.formTitle(OpBorrow, s.Catalog.Borrow))
	r.Post("/ui/return", s.formTitle(OpReturn, s.Catalog.Return))
	r.Post("/ui/remove", s.formTitle(OpRemove, s.Catalog.Remove))
}

func (s *Server) formAdd(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, page{Flash: &flash{Class: Failure.String(), Text: "bad form"}})
		return
	}

	rec := Record{
		ID:       strings.TrimSpace(r.PostFormValue("bid")),
		Title:    r.PostFormValue("title"),
		Author:   r.PostFormValue("author"),
		Category: r.PostFormValue("category"),
		Status:   Available,
	}
	if rec.ID == "" {
		rec.ID = NewID()
	}

	_, err := s.Catalog.Add(r.Context(), rec)
	s.render(w, r, http.StatusOK, page{Flash: outcomeFlash(OpAdd, rec.Title, err)})
}

func (s *Server) formTitle(op Op, fn func(context.Context, string) (Record, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		title := r.PostFormValue("title")

		_, err := fn(r.Context(), title)
		s.render(w, r, http.StatusOK, page{Flash: outcomeFlash(op, title, err)})
	}
}

func (s *Server) formSearch(w http.ResponseWriter, r *http.Request) {
	title := r.PostFormValue("title")

	b, err := s.Catalog.Find(r.Context(), title)
	p := page{Flash: outcomeFlash(OpFind, title, err)}
	if err == nil {
		p.Found = &b
	}
	s.render(w, r, http.StatusOK, p)
}

func outcomeFlash(op Op, title string, err error) *flash {
	text := Message(op, title, err)
	if Classify(err) == Failure && !isUserError(err) {
		text = "The library could not be updated. Try again."
	}
	return &flash{Class: Classify(err).String(), Text: text}
}

// isUserError reports whether err explains itself to the person who
// submitted the form, as opposed to an internal failure.
func isUserError(err error) bool {
	return errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyInState)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, p page) {
	books, err := s.Catalog.List(r.Context())
	if err != nil {
		s.logger().Error("list books for page failed", zap.Error(err))
		p.Flash = &flash{Class: Failure.String(), Text: "The library could not be listed."}
	}
	p.Books = books
	p.Columns = []string{"ID", "Title", "Author", "Category", "Status"}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, p); err != nil {
		s.logger().Error("render page failed", zap.Error(err))
	}
}
