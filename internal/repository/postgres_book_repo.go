package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bookman/internal/model"
)

// PostgresBookRepo はPostgreSQLを使用した書籍リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// Create は書籍を作成する。
func (r *PostgresBookRepo) Create(ctx context.Context, book *model.Book) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, user_id, title, author, content, summary, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		book.ID, book.UserID, book.Title,
		nullString(book.Author), nullString(book.Content), nullString(book.Summary),
		book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

// FindByIDAndOwner はIDと所有者の両方が一致する書籍を取得する。
// 一致しない場合はnilを返す（他ユーザーの書籍の存在を漏らさない）。
func (r *PostgresBookRepo) FindByIDAndOwner(ctx context.Context, id, userID string) (*model.Book, error) {
	book := &model.Book{}
	var author, content, summary sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, author, content, summary, created_at, updated_at
		 FROM books
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&book.ID, &book.UserID, &book.Title, &author, &content, &summary, &book.CreatedAt, &book.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	book.Author = author.String
	book.Content = content.String
	book.Summary = summary.String
	return book, nil
}

// ListByOwner は所有者の書籍一覧を作成日時の降順で返す。
// 帯域とプライバシーの観点から本文（content）は取得しない。
func (r *PostgresBookRepo) ListByOwner(ctx context.Context, userID string) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, author, summary, created_at, updated_at
		 FROM books
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book := &model.Book{}
		var author, summary sql.NullString
		if err := rows.Scan(&book.ID, &book.UserID, &book.Title, &author, &summary, &book.CreatedAt, &book.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		book.Author = author.String
		book.Summary = summary.String
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	return books, nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
