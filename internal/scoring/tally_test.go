package scoring

import (
	"testing"

	"live-quiz-service/internal/domain"
)

func TestTallyConservesAnswers(t *testing.T) {
	answers := []domain.Answer{
		{PlayerID: "a", OptionIndex: 0},
		{PlayerID: "b", OptionIndex: 2},
		{PlayerID: "c", OptionIndex: 2},
		{PlayerID: "d", OptionIndex: 3},
	}
	res := Tally(answers, 4, 2)
	sum := 0
	for _, c := range res.AnswerCounts {
		sum += c
	}
	if sum != len(answers) || res.TotalAnswers != len(answers) {
		t.Fatalf("expected %d answers, got sum=%d total=%d", len(answers), sum, res.TotalAnswers)
	}
	if res.CorrectCount != 2 {
		t.Fatalf("expected 2 correct, got %d", res.CorrectCount)
	}
	if res.AnswerCounts[2] != 2 || res.AnswerCounts[1] != 0 {
		t.Fatalf("unexpected histogram %v", res.AnswerCounts)
	}
}

func TestTallyIgnoresOutOfRange(t *testing.T) {
	answers := []domain.Answer{
		{PlayerID: "a", OptionIndex: -1},
		{PlayerID: "b", OptionIndex: 4},
		{PlayerID: "c", OptionIndex: 1},
	}
	res := Tally(answers, 4, 1)
	if res.TotalAnswers != 1 || res.CorrectCount != 1 {
		t.Fatalf("expected only the valid answer counted, got %+v", res)
	}
	if len(res.AnswerCounts) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(res.AnswerCounts))
	}
}

func TestTallyNoAnswers(t *testing.T) {
	res := Tally(nil, 3, 0)
	if res.TotalAnswers != 0 || len(res.AnswerCounts) != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
}
