// Package scoring holds the pure point and ranking rules of a live game.
package scoring

import (
	"math"
	"sort"

	"live-quiz-service/internal/domain"
)

// Score returns the points earned by one answer. Correct answers earn between
// half and all of maxPoints, scaling linearly with the time left in the window.
func Score(isCorrect bool, latencyMs, timeLimitMs int64, maxPoints int) int {
	if !isCorrect {
		return 0
	}
	if timeLimitMs <= 0 {
		return maxPoints
	}
	latency := ClampLatency(latencyMs, timeLimitMs)
	timeRatio := 1 - float64(latency)/float64(timeLimitMs)
	return int(math.Round(float64(maxPoints) * (0.5 + 0.5*timeRatio)))
}

// ClampLatency bounds a response latency to [0, timeLimitMs].
func ClampLatency(latencyMs, timeLimitMs int64) int64 {
	if latencyMs < 0 {
		return 0
	}
	if timeLimitMs >= 0 && latencyMs > timeLimitMs {
		return timeLimitMs
	}
	return latencyMs
}

// Rank orders players by score, highest first, keeping input order for ties.
// Ranks are positional and start at 1. The input slice is not modified.
func Rank(players []domain.Player) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = domain.LeaderboardEntry{
			PlayerID: p.PlayerID,
			Nickname: p.Nickname,
			Score:    p.Score,
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
