package app_test

import (
	"errors"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

func startedGame(t *testing.T, clock *fakeClock, nicknames ...string) (*app.Registry, *app.Session) {
	t.Helper()
	registry := app.NewRegistry(app.WithClock(clock.Now))
	session, _, err := registry.CreateSession(sampleQuiz(), "host-1", "c-host")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i, nick := range nicknames {
		if _, _, err := registry.AddPlayer(session.PIN(), connFor(i), nick); err != nil {
			t.Fatalf("join %s: %v", nick, err)
		}
	}
	if _, err := registry.StartGame(session.PIN()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return registry, session
}

func connFor(i int) string {
	return string(rune('a'+i)) + "-conn"
}

func playerByNick(t *testing.T, session *app.Session, nick string) domain.Player {
	t.Helper()
	for _, p := range session.Players() {
		if p.Nickname == nick {
			return p
		}
	}
	t.Fatalf("player %s not found", nick)
	return domain.Player{}
}

func TestStartGameRequiresPlayers(t *testing.T) {
	registry := app.NewRegistry()
	session, _, _ := registry.CreateSession(sampleQuiz(), "host-1", "c-host")
	if _, err := registry.StartGame(session.PIN()); !errors.Is(err, domain.ErrNoPlayers) {
		t.Fatalf("expected no players error, got %v", err)
	}
	if session.Phase() != domain.PhaseLobby {
		t.Fatalf("failed start must keep lobby")
	}
	if _, err := registry.StartGame("missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStartGameOpensFirstQuestion(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice")

	if session.Phase() != domain.PhaseQuestion {
		t.Fatalf("expected question phase, got %s", session.Phase())
	}
	view, err := registry.CurrentQuestion(session.PIN())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if view.Index != 0 || view.Total != 2 || view.TimeLimit != 20 || view.Points != 1000 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Type != domain.DefaultQuestionType {
		t.Fatalf("expected default type, got %q", view.Type)
	}
	if len(view.Options) != 4 || view.Options[2] != "class" {
		t.Fatalf("unexpected options %v", view.Options)
	}
	if _, err := registry.StartGame(session.PIN()); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("second start must fail, got %v", err)
	}
}

func TestSubmitAnswerScoresAtSubmission(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice", "Bob")
	pin := session.PIN()

	clock.Advance(5 * time.Second)
	res, err := registry.SubmitAnswer(pin, connFor(0), 2)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Answer.IsCorrect || res.Answer.PointsEarned != 875 || res.TotalScore != 875 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Answer.ResponseLatencyMs != 5000 {
		t.Fatalf("expected 5000ms latency, got %d", res.Answer.ResponseLatencyMs)
	}
	if res.Answered != 1 || res.Players != 2 || res.HostConnID != "c-host" {
		t.Fatalf("unexpected progress %+v", res)
	}
	alice := playerByNick(t, session, "Alice")
	if alice.Score != 875 || alice.CurrentStreak != 1 {
		t.Fatalf("expected score applied immediately, got %+v", alice)
	}
}

func TestSubmitAnswerAdmission(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice", "Bob")
	pin := session.PIN()

	if _, err := registry.SubmitAnswer(pin, connFor(0), 2); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := playerByNick(t, session, "Alice")

	if _, err := registry.SubmitAnswer(pin, connFor(0), 1); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}
	if _, err := registry.SubmitAnswer(pin, connFor(0), 2); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}
	after := playerByNick(t, session, "Alice")
	if after.Score != before.Score || after.CurrentStreak != before.CurrentStreak {
		t.Fatalf("second submission changed state: %+v -> %+v", before, after)
	}
	if _, err := registry.SubmitAnswer(pin, "stranger", 0); !errors.Is(err, domain.ErrUnknownPlayer) {
		t.Fatalf("expected unknown player, got %v", err)
	}
	if _, err := registry.SubmitAnswer(pin, "c-host", 0); !errors.Is(err, domain.ErrUnknownPlayer) {
		t.Fatalf("host cannot answer, got %v", err)
	}

	if _, err := registry.RevealAnswer(pin); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if _, err := registry.SubmitAnswer(pin, connFor(1), 2); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("expected wrong phase after reveal, got %v", err)
	}
}

func TestSubmitAnswerClampsLateAnswers(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice")

	clock.Advance(45 * time.Second)
	res, err := registry.SubmitAnswer(session.PIN(), connFor(0), 2)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Answer.ResponseLatencyMs != 20000 || res.Answer.PointsEarned != 500 {
		t.Fatalf("expected clamp to window, got %+v", res.Answer)
	}
}

func TestSubmitAnswerOutOfRangeIsIncorrect(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice")
	pin := session.PIN()

	res, err := registry.SubmitAnswer(pin, connFor(0), 9)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Answer.IsCorrect || res.Answer.PointsEarned != 0 {
		t.Fatalf("expected incorrect answer, got %+v", res.Answer)
	}
	reveal, err := registry.RevealAnswer(pin)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if reveal.Tally.TotalAnswers != 0 {
		t.Fatalf("out-of-range answer must stay out of the histogram, got %+v", reveal.Tally)
	}
}

func TestRevealCoversEveryPlayer(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice", "Bob", "Carol")
	pin := session.PIN()

	clock.Advance(2 * time.Second)
	_, _ = registry.SubmitAnswer(pin, connFor(0), 2)
	_, _ = registry.SubmitAnswer(pin, connFor(1), 0)

	reveal, err := registry.RevealAnswer(pin)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if len(reveal.Results) != 3 {
		t.Fatalf("expected a result per player, got %d", len(reveal.Results))
	}
	if reveal.CorrectIndex != 2 || reveal.QuestionIndex != 0 {
		t.Fatalf("unexpected reveal %+v", reveal)
	}
	if reveal.Tally.AnswerCounts[2] != 1 || reveal.Tally.AnswerCounts[0] != 1 || reveal.Tally.TotalAnswers != 2 || reveal.Tally.CorrectCount != 1 {
		t.Fatalf("unexpected tally %+v", reveal.Tally)
	}
	carol := reveal.Results[2]
	if carol.Answered || carol.IsCorrect || carol.PointsEarned != 0 || carol.TotalScore != 0 {
		t.Fatalf("expected synthesized zero result, got %+v", carol)
	}
	if session.Phase() != domain.PhaseResults {
		t.Fatalf("expected results phase, got %s", session.Phase())
	}
	if _, err := registry.RevealAnswer(pin); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("second reveal must fail, got %v", err)
	}
}

func TestStreakResetsOnMissedQuestion(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice")
	pin := session.PIN()

	_, _ = registry.SubmitAnswer(pin, connFor(0), 2)
	_, _ = registry.RevealAnswer(pin)
	if got := playerByNick(t, session, "Alice").CurrentStreak; got != 1 {
		t.Fatalf("expected streak 1, got %d", got)
	}
	if _, err := registry.NextQuestion(pin); err != nil {
		t.Fatalf("next: %v", err)
	}
	_, _ = registry.RevealAnswer(pin)
	alice := playerByNick(t, session, "Alice")
	if alice.CurrentStreak != 0 || alice.Score != 1000 {
		t.Fatalf("expected streak reset and unchanged score, got %+v", alice)
	}
}

func TestNextQuestionFlow(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice")
	pin := session.PIN()

	if _, err := registry.NextQuestion(pin); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("next during question must fail, got %v", err)
	}
	_, _ = registry.RevealAnswer(pin)
	if _, err := registry.Leaderboard(pin); err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if session.Phase() != domain.PhaseLeaderboard {
		t.Fatalf("expected leaderboard phase, got %s", session.Phase())
	}

	clock.Advance(time.Minute)
	view, err := registry.NextQuestion(pin)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if view.Index != 1 || view.Points != 500 || session.Phase() != domain.PhaseQuestion {
		t.Fatalf("unexpected view %+v in %s", view, session.Phase())
	}

	// The window opened at NextQuestion, not at start.
	clock.Advance(5 * time.Second)
	res, err := registry.SubmitAnswer(pin, connFor(0), 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Answer.ResponseLatencyMs != 5000 {
		t.Fatalf("expected latency from the new window, got %d", res.Answer.ResponseLatencyMs)
	}

	// Reading the current question never restarts the window.
	clock.Advance(time.Second)
	if _, err := registry.CurrentQuestion(pin); err != nil {
		t.Fatalf("current: %v", err)
	}

	_, _ = registry.RevealAnswer(pin)
	_, _ = registry.Leaderboard(pin)
	if _, err := registry.NextQuestion(pin); !errors.Is(err, domain.ErrNoMoreQuestions) {
		t.Fatalf("expected no more questions, got %v", err)
	}
	if session.Phase() != domain.PhaseLeaderboard {
		t.Fatalf("phase must not change after the last question, got %s", session.Phase())
	}
	if view, _ := registry.CurrentQuestion(pin); view.Index != 1 {
		t.Fatalf("cursor moved past the last question: %d", view.Index)
	}
}

func TestLeaderboardRequiresResults(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice")
	if _, err := registry.Leaderboard(session.PIN()); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("expected wrong phase during question, got %v", err)
	}
}

func TestFinishGame(t *testing.T) {
	clock := newFakeClock()
	registry, session := startedGame(t, clock, "Alice", "Bob")
	pin := session.PIN()

	_, _ = registry.SubmitAnswer(pin, connFor(1), 2)
	result, standings, err := registry.FinishGame(pin)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if session.Phase() != domain.PhaseFinished {
		t.Fatalf("expected finished phase")
	}
	if result.PIN != pin || result.QuizID != "quiz-1" || result.HostID != "host-1" || result.SessionID != session.ID() {
		t.Fatalf("unexpected result header %+v", result)
	}
	if len(result.Entries) != 2 || result.Entries[0].Nickname != "Bob" || result.Entries[0].Rank != 1 {
		t.Fatalf("unexpected ranking %+v", result.Entries)
	}
	if standings.ConnByID[result.Entries[0].PlayerID] != connFor(1) {
		t.Fatalf("expected routing for the winner")
	}
	if _, _, err := registry.FinishGame(pin); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("finishing twice must fail, got %v", err)
	}
	if _, err := registry.SubmitAnswer(pin, connFor(0), 2); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("expected wrong phase after finish, got %v", err)
	}
}

func TestFinishGameNotFromLobby(t *testing.T) {
	registry := app.NewRegistry()
	session, _, _ := registry.CreateSession(sampleQuiz(), "host-1", "c-host")
	if _, _, err := registry.FinishGame(session.PIN()); !errors.Is(err, domain.ErrWrongPhase) {
		t.Fatalf("expected wrong phase in lobby, got %v", err)
	}
}
