package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"live-quiz-service/internal/domain"
)

// GameResultRow is one ranked player of a finished game.
type GameResultRow struct {
	bun.BaseModel `bun:"table:game_results,alias:gr"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SessionID  string    `bun:"session_id,notnull"`
	PIN        string    `bun:"pin,notnull"`
	QuizID     string    `bun:"quiz_id,notnull"`
	HostID     string    `bun:"host_id,notnull"`
	PlayerID   string    `bun:"player_id,notnull"`
	Nickname   string    `bun:"nickname,notnull"`
	Score      int       `bun:"score,notnull"`
	Rank       int       `bun:"rank,notnull"`
	FinishedAt time.Time `bun:"finished_at,notnull"`
}

// ResultStore persists final rankings with bun.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) SaveResults(ctx context.Context, result domain.GameResult) error {
	if len(result.Entries) == 0 {
		return nil
	}
	rows := make([]GameResultRow, 0, len(result.Entries))
	for _, entry := range result.Entries {
		rows = append(rows, GameResultRow{
			SessionID:  result.SessionID,
			PIN:        result.PIN,
			QuizID:     result.QuizID,
			HostID:     result.HostID,
			PlayerID:   entry.PlayerID,
			Nickname:   entry.Nickname,
			Score:      entry.Score,
			Rank:       entry.Rank,
			FinishedAt: result.FinishedAt.UTC(),
		})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (session_id, player_id) DO UPDATE").
		Set("score = EXCLUDED.score").
		Set("rank = EXCLUDED.rank").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	return nil
}

// LatestByPIN returns the standings of the most recent game finished under pin.
func (s *ResultStore) LatestByPIN(ctx context.Context, pin string) (domain.GameResult, error) {
	var sessionID string
	err := s.db.NewSelect().
		Model((*GameResultRow)(nil)).
		Column("session_id").
		Where("pin = ?", pin).
		OrderExpr("finished_at DESC").
		Limit(1).
		Scan(ctx, &sessionID)
	if err != nil {
		if isNoRows(err) {
			return domain.GameResult{}, domain.ErrResultsNotFound
		}
		return domain.GameResult{}, fmt.Errorf("latest results: %w", err)
	}

	var rows []GameResultRow
	err = s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		OrderExpr("rank ASC").
		Scan(ctx)
	if err != nil {
		return domain.GameResult{}, fmt.Errorf("load results: %w", err)
	}
	if len(rows) == 0 {
		return domain.GameResult{}, domain.ErrResultsNotFound
	}

	first := rows[0]
	result := domain.GameResult{
		SessionID:  first.SessionID,
		PIN:        first.PIN,
		QuizID:     first.QuizID,
		HostID:     first.HostID,
		FinishedAt: first.FinishedAt,
		Entries:    make([]domain.LeaderboardEntry, 0, len(rows)),
	}
	for _, row := range rows {
		result.Entries = append(result.Entries, domain.LeaderboardEntry{
			PlayerID: row.PlayerID,
			Nickname: row.Nickname,
			Score:    row.Score,
			Rank:     row.Rank,
		})
	}
	return result, nil
}
