package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
)

// BookServiceInterface は書籍ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	Create(ctx context.Context, userID, title, author, content string) (*model.Book, error)
	List(ctx context.Context, userID string) ([]*model.Book, error)
	Get(ctx context.Context, userID, bookID string) (*model.Book, error)
}

// BookHandler は書籍関連のHTTPハンドラー。
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

type createBookRequest struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// bookResponse は書籍1件のレスポンス。
// 一覧と登録応答では本文を返さないため、Contentはomitempty。
// 本文なしで登録された書籍には要約が存在しないため、Summaryもomitempty。
type bookResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Create は書籍を登録する。
// POST /books （要認証）
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("no credential"))
		return
	}

	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	book, err := h.service.Create(r.Context(), userID, req.Title, req.Author, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 登録応答は確認用フィールドのみで、本文は返さない
	writeJSON(w, http.StatusCreated, toBookResponse(book, false))
}

// List は所有する書籍の一覧を新しい順に返す。本文は含まれない。
// GET /books （要認証）
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("no credential"))
		return
	}

	books, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]bookResponse, 0, len(books))
	for _, book := range books {
		resp = append(resp, toBookResponse(book, false))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get は所有する書籍1件を本文込みで返す。
// 存在しない場合と他ユーザーの書籍の場合はどちらも404。
// GET /books/{id} （要認証）
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("no credential"))
		return
	}

	bookID := chi.URLParam(r, "id")
	book, err := h.service.Get(r.Context(), userID, bookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(book, true))
}

// toBookResponse はmodel.BookからAPIレスポンスに変換する。
// includeContentが偽の場合は本文を省略する（一覧用）。
func toBookResponse(book *model.Book, includeContent bool) bookResponse {
	resp := bookResponse{
		ID:        book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Summary:   book.Summary,
		CreatedAt: book.CreatedAt,
		UpdatedAt: book.UpdatedAt,
	}
	if includeContent {
		resp.Content = book.Content
	}
	return resp
}
