package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/bookman/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, google_id, profile_picture, created_at, updated_at`

// scanUser は1行分のユーザーレコードをスキャンする。
// NULL許可カラムは空文字列にマップする。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var passwordHash, googleID, profilePicture sql.NullString
	err := row.Scan(
		&user.ID, &user.Username, &user.Email,
		&passwordHash, &googleID, &profilePicture,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user.PasswordHash = passwordHash.String
	user.GoogleID = googleID.String
	user.ProfilePicture = profilePicture.String
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByEmailOrUsername はメールアドレスまたはユーザー名が一致するユーザーを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 OR username = $2 LIMIT 1`,
		email, username,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email or username: %w", err)
	}
	return user, nil
}

// FindByGoogleID はGoogleアカウントIDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
// 一意制約違反（並行登録との競合）はmodel.APIErrorのDUPLICATE_USERに変換する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, google_id, profile_picture, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email,
		nullString(user.PasswordHash), nullString(user.GoogleID), nullString(user.ProfilePicture),
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateUserError()
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// LinkGoogleAccount は既存ユーザーにGoogleアカウントIDとプロフィール画像URLを紐付ける。
func (r *PostgresUserRepo) LinkGoogleAccount(ctx context.Context, userID, googleID, profilePicture string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET google_id = $2, profile_picture = COALESCE(NULLIF($3, ''), profile_picture), updated_at = now()
		 WHERE id = $1`,
		userID, googleID, nullString(profilePicture),
	)
	if err != nil {
		return fmt.Errorf("failed to link google account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// AppendHistory は活動台帳に1件追記する。
// 書籍本体の保存とは別ステートメントであり、トランザクション境界を共有しない。
func (r *PostgresUserRepo) AppendHistory(ctx context.Context, entry *model.HistoryEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO history_entries (id, user_id, book_id, title, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserID, entry.BookID, entry.Title, nullString(entry.Summary), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// ListHistoryByUserID はユーザーの活動台帳を追記順で返す。
func (r *PostgresUserRepo) ListHistoryByUserID(ctx context.Context, userID string) ([]*model.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, book_id, title, summary, created_at
		 FROM history_entries
		 WHERE user_id = $1
		 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.HistoryEntry
	for rows.Next() {
		entry := &model.HistoryEntry{}
		var summary sql.NullString
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.BookID, &entry.Title, &summary, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Summary = summary.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history entries: %w", err)
	}

	return entries, nil
}

// nullString は空文字列をNULLとして書き込むためのヘルパー。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueViolation はPostgreSQLの一意制約違反（SQLSTATE 23505）かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
