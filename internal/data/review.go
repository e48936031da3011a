package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glintlab/review-responder/internal/biz/domain"
	"github.com/glintlab/review-responder/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// reviewRepo implements the Review repository
type reviewRepo struct {
	db *sql.DB
}

// NewReviewRepo creates the SQLite-backed review repository
func NewReviewRepo(dbPath string) (repo.ReviewRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reviews (
			id                TEXT PRIMARY KEY,
			platform          TEXT NOT NULL,
			app_id            TEXT NOT NULL,
			app_name          TEXT NOT NULL,
			review_id         TEXT NOT NULL,
			author_name       TEXT NOT NULL DEFAULT 'Anonymous',
			star_rating       INTEGER NOT NULL,
			original_text     TEXT NOT NULL,
			translated_text   TEXT NOT NULL DEFAULT '',
			reviewer_language TEXT NOT NULL DEFAULT 'auto',
			territory         TEXT NOT NULL DEFAULT '',
			generated_reply   TEXT NOT NULL DEFAULT '',
			reply_translated  TEXT NOT NULL DEFAULT '',
			outward_chat_id   TEXT NOT NULL DEFAULT '',
			outward_msg_id    TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL DEFAULT 'pending',
			created_at        INTEGER NOT NULL,
			updated_at        INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_reviews_status ON reviews(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_platform_app ON reviews(platform, app_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_outward ON reviews(outward_chat_id, outward_msg_id)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	return &reviewRepo{db: db}, nil
}

const reviewColumns = `id, platform, app_id, app_name, review_id, author_name, star_rating,
	original_text, translated_text, reviewer_language, territory,
	generated_reply, reply_translated, outward_chat_id, outward_msg_id,
	status, created_at, updated_at`

// Exists reports whether a review with the composite key is stored
func (r *reviewRepo) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reviews WHERE id = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query review existence: %w", err)
	}
	return true, nil
}

// Insert persists a new review
func (r *reviewRepo) Insert(ctx context.Context, review *domain.Review) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		review.Key,
		string(review.Platform),
		review.AppID,
		review.AppName,
		review.ReviewID,
		review.AuthorName,
		review.StarRating,
		review.OriginalText,
		review.TranslatedText,
		review.ReviewerLanguage,
		review.Territory,
		review.GeneratedReply,
		review.ReplyTranslated,
		review.Outward.ChatID,
		review.Outward.MessageID,
		string(review.Status),
		review.CreatedAt.Unix(),
		review.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// GetByKey gets a review by composite key
func (r *reviewRepo) GetByKey(ctx context.Context, key string) (*domain.Review, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+` FROM reviews WHERE id = ?
	`, key)
	return scanReview(row)
}

// GetByOutwardRef gets the review announced by the given message
func (r *reviewRepo) GetByOutwardRef(ctx context.Context, ref domain.OutwardRef) (*domain.Review, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE outward_chat_id = ? AND outward_msg_id = ?
	`, ref.ChatID, ref.MessageID)
	return scanReview(row)
}

// UpdateReply overwrites the generated reply while the review is pending
func (r *reviewRepo) UpdateReply(ctx context.Context, key, reply, replyTranslated string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET generated_reply = ?, reply_translated = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`, reply, replyTranslated, time.Now().Unix(), key)
	if err != nil {
		return false, fmt.Errorf("failed to update reply: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// SetOutwardRef records the notification message reference
func (r *reviewRepo) SetOutwardRef(ctx context.Context, key string, ref domain.OutwardRef) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET outward_chat_id = ?, outward_msg_id = ?, updated_at = ?
		WHERE id = ?
	`, ref.ChatID, ref.MessageID, time.Now().Unix(), key)
	if err != nil {
		return fmt.Errorf("failed to set outward ref: %w", err)
	}
	return nil
}

// Transition atomically moves a pending review to a terminal status. The
// status guard lives in the statement itself, so two racing transitions can
// never both see a pending row.
func (r *reviewRepo) Transition(ctx context.Context, key string, target domain.ReviewStatus) (bool, error) {
	if !target.Terminal() {
		return false, fmt.Errorf("invalid transition target %q", target)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET status = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`, string(target), time.Now().Unix(), key)
	if err != nil {
		return false, fmt.Errorf("failed to transition review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// CountByStatus returns per-status totals
func (r *reviewRepo) CountByStatus(ctx context.Context) (repo.StatusCounts, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reviews GROUP BY status`)
	if err != nil {
		return repo.StatusCounts{}, fmt.Errorf("failed to count reviews: %w", err)
	}
	defer rows.Close()

	var counts repo.StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return repo.StatusCounts{}, fmt.Errorf("failed to scan count: %w", err)
		}
		switch domain.ReviewStatus(status) {
		case domain.StatusPending:
			counts.Pending = n
		case domain.StatusReplied:
			counts.Replied = n
		case domain.StatusSkipped:
			counts.Skipped = n
		}
	}
	return counts, rows.Err()
}

// Close closes the database connection
func (r *reviewRepo) Close() error {
	return r.db.Close()
}

func scanReview(row *sql.Row) (*domain.Review, error) {
	var review domain.Review
	var platform, status string
	var createdAt, updatedAt int64
	err := row.Scan(
		&review.Key,
		&platform,
		&review.AppID,
		&review.AppName,
		&review.ReviewID,
		&review.AuthorName,
		&review.StarRating,
		&review.OriginalText,
		&review.TranslatedText,
		&review.ReviewerLanguage,
		&review.Territory,
		&review.GeneratedReply,
		&review.ReplyTranslated,
		&review.Outward.ChatID,
		&review.Outward.MessageID,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan review: %w", err)
	}
	review.Platform = domain.Platform(platform)
	review.Status = domain.ReviewStatus(status)
	review.CreatedAt = time.Unix(createdAt, 0)
	review.UpdatedAt = time.Unix(updatedAt, 0)
	return &review, nil
}
