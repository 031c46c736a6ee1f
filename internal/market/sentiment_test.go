package market

import "testing"

func TestScoreHeadlinesEmpty(t *testing.T) {
	score, label := ScoreHeadlines(nil)
	if score != 0 || label != "neutral" {
		t.Fatalf("expected 0/neutral for no headlines, got %v/%s", score, label)
	}
}

func TestScoreHeadlinesPositive(t *testing.T) {
	score, label := ScoreHeadlines([]string{
		"Bitcoin surges to record high",
		"Ethereum rallies on adoption news",
	})
	if label != "positive" {
		t.Fatalf("expected positive label, got %s (score %v)", label, score)
	}
}

func TestScoreHeadlinesNegative(t *testing.T) {
	score, label := ScoreHeadlines([]string{
		"Exchange hacked, prices crash",
		"Regulator lawsuit triggers selloff",
	})
	if label != "negative" {
		t.Fatalf("expected negative label, got %s (score %v)", label, score)
	}
}

func TestScoreHeadlinesNeutral(t *testing.T) {
	_, label := ScoreHeadlines([]string{"Bitcoin trades sideways this week"})
	if label != "neutral" {
		t.Fatalf("expected neutral label, got %s", label)
	}
}

func TestHeadlinesExtraction(t *testing.T) {
	body := []byte(`{"articles":[{"title":"First"},{"title":""},{"title":"Second"}]}`)
	titles := Headlines(body)
	if len(titles) != 2 || titles[0] != "First" || titles[1] != "Second" {
		t.Fatalf("unexpected titles: %v", titles)
	}

	if titles := Headlines([]byte(`not json`)); titles != nil {
		t.Fatalf("expected nil for invalid body, got %v", titles)
	}
}
