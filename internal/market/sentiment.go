package market

import "strings"

// Small AFINN-style word scores. Enough to label headline tone; anything
// more serious belongs upstream.
var sentimentScores = map[string]int{
	"gain":     2,
	"gains":    2,
	"surge":    3,
	"surges":   3,
	"rally":    2,
	"rallies":  2,
	"soar":     3,
	"soars":    3,
	"bullish":  3,
	"record":   2,
	"high":     1,
	"rise":     1,
	"rises":    1,
	"up":       1,
	"growth":   2,
	"adoption": 2,
	"approve":  2,
	"approved": 2,
	"win":      2,
	"wins":     2,

	"loss":    -2,
	"losses":  -2,
	"crash":   -3,
	"crashes": -3,
	"plunge":  -3,
	"plunges": -3,
	"bearish": -3,
	"drop":    -2,
	"drops":   -2,
	"fall":    -1,
	"falls":   -1,
	"down":    -1,
	"hack":    -3,
	"hacked":  -3,
	"fraud":   -3,
	"scam":    -3,
	"ban":     -2,
	"banned":  -2,
	"fear":    -2,
	"lawsuit": -2,
	"sell":    -1,
	"selloff": -2,
}

// ScoreHeadlines averages per-headline word scores. Labels follow the
// dashboard's convention: above 1 positive, below -1 negative, else neutral.
func ScoreHeadlines(headlines []string) (float64, string) {
	if len(headlines) == 0 {
		return 0, "neutral"
	}

	total := 0
	for _, h := range headlines {
		total += scoreHeadline(h)
	}
	avg := float64(total) / float64(len(headlines))

	label := "neutral"
	if avg > 1 {
		label = "positive"
	} else if avg < -1 {
		label = "negative"
	}
	return avg, label
}

func scoreHeadline(headline string) int {
	score := 0
	for _, word := range strings.Fields(strings.ToLower(headline)) {
		word = strings.Trim(word, ".,!?:;\"'()[]")
		score += sentimentScores[word]
	}
	return score
}
