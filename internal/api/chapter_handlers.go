package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chapterlyapp/chapterly-server/internal/http/response"
)

type createBookRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type createChapterRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Position int    `json:"position" validate:"gte=1"`
	Content  string `json:"content" validate:"required"`
}

// handleCreateBook creates a book owned by the caller.
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	book, err := s.chapterService.CreateBook(r.Context(), getUserID(r.Context()), req.Title)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, book, s.logger)
}

// handleCreateChapter adds a chapter to the caller's book.
func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	var req createChapterRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	chapter, err := s.chapterService.CreateChapter(r.Context(), getUserID(r.Context()), bookID, req.Title, req.Position, req.Content)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, chapter, s.logger)
}

// handleGetChapter returns a chapter by ID.
func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	chapter, err := s.chapterService.GetChapter(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, chapter, s.logger)
}

// handleListChapters returns a book's chapters in reading order.
func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := s.chapterService.ListChapters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, chapters, s.logger)
}
