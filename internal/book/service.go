// Package book は書籍の登録パイプラインと取得機能を提供する。
package book

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookman/internal/metrics"
	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

// summaryUnavailable は要約生成に失敗した場合に保存される代替テキスト。
// 要約はベストエフォートであり、失敗しても書籍登録自体は成功する。
const summaryUnavailable = "要約を生成できませんでした。しばらくしてからもう一度お試しください。"

// Summarizer は書籍本文の要約生成機能のインターフェース。
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// Sanitizer は保存前のテキストサニタイズ機能のインターフェース。
type Sanitizer interface {
	Sanitize(input string) string
}

// Service は書籍の登録・取得のビジネスロジックを提供する。
type Service struct {
	books          repository.BookRepository
	users          repository.UserRepository
	summarizer     Summarizer
	sanitizer      Sanitizer
	metrics        metrics.MetricsCollector
	summaryTimeout time.Duration
}

// NewService はServiceの新しいインスタンスを生成する。
// summarizerがnilの場合、要約生成はスキップされ代替テキストが保存される。
func NewService(
	books repository.BookRepository,
	users repository.UserRepository,
	summarizer Summarizer,
	sanitizer Sanitizer,
	collector metrics.MetricsCollector,
	summaryTimeout time.Duration,
) *Service {
	return &Service{
		books:          books,
		users:          users,
		summarizer:     summarizer,
		sanitizer:      sanitizer,
		metrics:        collector,
		summaryTimeout: summaryTimeout,
	}
}

// Create は書籍を登録する。
// 本文がある場合のみ要約を1回だけ試行し、失敗した場合は代替テキストを
// 保存して登録を続行する。本文が空の場合、要約は保存されない。
// 登録後、所有者の活動台帳に追記する。台帳への追記失敗は記録するが、
// 書籍登録の成否には影響しない（書籍と台帳は別ステートメントで書き込まれ、
// 共有トランザクションを持たない）。
func (s *Service) Create(ctx context.Context, userID, title, author, content string) (*model.Book, error) {
	if strings.TrimSpace(title) == "" {
		return nil, model.NewValidationError("タイトル")
	}

	title = s.sanitize(title)
	author = s.sanitize(author)
	content = s.sanitize(content)

	if title == "" {
		// サニタイズでタグのみのタイトルが空になった場合も必須エラー
		return nil, model.NewValidationError("タイトル")
	}

	summary := s.generateSummary(ctx, content)

	now := time.Now().UTC()
	book := &model.Book{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Author:    author,
		Content:   content,
		Summary:   summary,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	s.metrics.RecordBookCreated()

	slog.Info("book created",
		slog.String("book_id", book.ID),
		slog.String("user_id", userID),
	)

	entry := &model.HistoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		BookID:    book.ID,
		Title:     book.Title,
		Summary:   book.Summary,
		CreatedAt: now,
	}
	if err := s.users.AppendHistory(ctx, entry); err != nil {
		// 台帳追記の失敗で書籍登録は巻き戻さない
		s.metrics.RecordHistoryAppendFailure()
		slog.Error("failed to append history entry",
			slog.String("book_id", book.ID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return book, nil
}

// List は所有者の書籍一覧を新しい順に返す。本文は含まれない。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Book, error) {
	books, err := s.books.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Get はIDと所有者の両方が一致する書籍を返す。
// 存在しない場合と他ユーザーの書籍の場合は同一のエラーを返す。
func (s *Service) Get(ctx context.Context, userID, bookID string) (*model.Book, error) {
	book, err := s.books.FindByIDAndOwner(ctx, bookID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(bookID)
	}
	return book, nil
}

// generateSummary は本文の要約を1回だけ試行する。
// 本文が空の場合は要約自体を行わず空文字列を返す。
// 本文があるのに生成できない場合（失敗・タイムアウト・summarizer未設定）は
// 代替テキストを返す。
func (s *Service) generateSummary(ctx context.Context, content string) string {
	if content == "" {
		return ""
	}
	if s.summarizer == nil {
		return summaryUnavailable
	}

	if s.summaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.summaryTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.summarizer.Summarize(ctx, content)
	s.metrics.RecordSummaryLatency(time.Since(start))
	if err != nil {
		s.metrics.RecordSummaryFailure()
		slog.Warn("summary generation failed",
			slog.String("error", err.Error()),
		)
		return summaryUnavailable
	}

	s.metrics.RecordSummarySuccess()
	return text
}

// sanitize は設定されていればサニタイザを適用する。
func (s *Service) sanitize(input string) string {
	if s.sanitizer == nil {
		return strings.TrimSpace(input)
	}
	return s.sanitizer.Sanitize(input)
}
