package votes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bookhub/internal/apperr"
	"bookhub/internal/events"
	"bookhub/pkg/models"
)

// Ledger applies vote casts. The read-decide-write and the tally all run in
// one write transaction; the store's DSN begins it with an immediate lock
// so casts serialize.
type Ledger struct {
	DB     *sql.DB
	Events events.Publisher
	Log    *slog.Logger
}

func NewLedger(db *sql.DB, pub events.Publisher, log *slog.Logger) *Ledger {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Ledger{DB: db, Events: pub, Log: log}
}

func (l *Ledger) Cast(ctx context.Context, voterID, reviewID string, value int) (*models.ReviewScore, error) {
	if !validValue(value) {
		return nil, apperr.Validation("invalid vote value")
	}

	score, bookID, action, err := l.cast(ctx, voterID, reviewID, value)
	if err != nil {
		if apperr.CodeOf(err) != apperr.CodeInternal {
			return nil, err
		}
		return nil, apperr.Internal("could not record vote", err)
	}

	l.Log.Debug("vote cast", "review_id", reviewID, "user_id", voterID, "action", action.String())
	l.Events.Publish(events.Event{
		Type:       events.VoteCast,
		BookID:     bookID,
		ReviewID:   reviewID,
		Score:      &score.Score,
		VotesCount: &score.VotesCount,
		At:         time.Now().UTC(),
	})
	return score, nil
}

func (l *Ledger) cast(ctx context.Context, voterID, reviewID string, value int) (_ *models.ReviewScore, bookID string, action Action, err error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", 0, fmt.Errorf("begin vote: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var authorID string
	err = tx.QueryRowContext(ctx, `SELECT user_id, book_id FROM reviews WHERE id = ?`, reviewID).Scan(&authorID, &bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", 0, apperr.NotFound("review not found")
		}
		return nil, "", 0, fmt.Errorf("load review: %w", err)
	}
	if authorID == voterID {
		return nil, "", 0, apperr.Forbidden("cannot vote on your own review")
	}

	current := none
	err = tx.QueryRowContext(ctx, `SELECT value FROM votes WHERE review_id = ? AND user_id = ?`, reviewID, voterID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", 0, fmt.Errorf("load vote: %w", err)
	}

	next, action := Transition(current, value)
	switch action {
	case ActionInsert:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO votes (review_id, user_id, value)
			VALUES (?, ?, ?)
		`, reviewID, voterID, next)
	case ActionUpdate:
		_, err = tx.ExecContext(ctx, `
			UPDATE votes
			SET value = ?, updated_at = CURRENT_TIMESTAMP
			WHERE review_id = ? AND user_id = ?
		`, next, reviewID, voterID)
	case ActionDelete:
		_, err = tx.ExecContext(ctx, `DELETE FROM votes WHERE review_id = ? AND user_id = ?`, reviewID, voterID)
	}
	if err != nil {
		return nil, "", 0, fmt.Errorf("%s vote: %w", action, err)
	}

	score := &models.ReviewScore{ID: reviewID}
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(value), 0), COUNT(*)
		FROM votes
		WHERE review_id = ?
	`, reviewID).Scan(&score.Score, &score.VotesCount)
	if err != nil {
		return nil, "", 0, fmt.Errorf("tally votes: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, "", 0, fmt.Errorf("commit vote: %w", err)
	}
	return score, bookID, action, nil
}

// Score reads a review's tally outside any cast.
func (l *Ledger) Score(ctx context.Context, reviewID string) (*models.ReviewScore, error) {
	var exists int
	err := l.DB.QueryRowContext(ctx, `SELECT 1 FROM reviews WHERE id = ?`, reviewID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("review not found")
		}
		return nil, apperr.Internal("could not load review", fmt.Errorf("load review: %w", err))
	}

	score := &models.ReviewScore{ID: reviewID}
	err = l.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(value), 0), COUNT(*)
		FROM votes
		WHERE review_id = ?
	`, reviewID).Scan(&score.Score, &score.VotesCount)
	if err != nil {
		return nil, apperr.Internal("could not load score", fmt.Errorf("tally votes: %w", err))
	}
	return score, nil
}
