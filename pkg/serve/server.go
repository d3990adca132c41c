package serve

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coolbeans/lexparse/pkg/parse"
)

// maxBodySize caps submitted document HTML at 64 MiB.
const maxBodySize = 64 << 20

// Server is the HTTP API server for parsed documents.
type Server struct {
	router   chi.Router
	registry *Registry
	log      *slog.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(log *slog.Logger) *Server {
	s := &Server{
		registry: NewRegistry(),
		log:      log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/healthz", s.handleHealth)

	r.Post("/documents", s.handleSubmit)
	r.Get("/documents", s.handleList)
	r.Get("/documents/{docID}/chunks", s.handleChunks)
	r.Get("/documents/{docID}/toc", s.handleTOC)
	r.Delete("/documents/{docID}", s.handleDelete)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleSubmit accepts raw EUR-Lex HTML in the request body, parses it, and
// stores the result. The document id may be chosen by the client via the
// ?id= query parameter; otherwise it is derived from the content.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		jsonError(w, "failed to read request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		jsonError(w, "empty request body", http.StatusBadRequest)
		return
	}

	result, err := parse.ParseReader(bytes.NewReader(body))
	if err != nil {
		var structureErr *parse.StructureError
		if errors.As(err, &structureErr) {
			jsonError(w, structureErr.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, "parse failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = DocumentID(body)
	}
	document := s.registry.Put(id, result)

	s.log.Info("document stored",
		"id", document.ID,
		"title", document.Title,
		"chunks", document.ChunkCount,
		"warnings", document.WarningCount,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"id":            document.ID,
		"title":         document.Title,
		"chunk_count":   document.ChunkCount,
		"warning_count": document.WarningCount,
		"warnings":      result.Warnings,
	})
}

// handleList lists stored document summaries.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": s.registry.List()})
}

// handleChunks returns the flat chunk sequence of one document.
func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	result, found := s.registry.Get(chi.URLParam(r, "docID"))
	if !found {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"chunks": result.Chunks})
}

// handleTOC returns the nested table of contents of one document.
func (s *Server) handleTOC(w http.ResponseWriter, r *http.Request) {
	result, found := s.registry.Get(chi.URLParam(r, "docID"))
	if !found {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result.TOC)
}

// handleDelete removes a stored document.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if !s.registry.Delete(docID) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
