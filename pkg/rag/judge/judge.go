package judge

import (
	"fmt"
	"strings"

	"policy-qa-be/pkg/rag/search"
)

// Thresholds define when retrieved context is enough to answer from.
type Thresholds struct {
	MinResults   int
	MinTokens    int
	QualityFloor float64 // minimum best fused score
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinResults:   3,
		MinTokens:    500,
		QualityFloor: 0.01,
	}
}

// Assessment is the judge's verdict on the accumulated context.
type Assessment struct {
	Sufficient  bool
	Reason      string
	ResultCount int
	TotalTokens int
	BestScore   float64
}

// Judge decides whether the accumulated context is sufficient.
// It is a pure predicate over the result set; no I/O, no model calls.
type Judge struct {
	thresholds Thresholds
}

func New(thresholds Thresholds) *Judge {
	return &Judge{thresholds: thresholds}
}

// Evaluate checks result count, total token mass, and the best fused
// score against the thresholds. All three must hold.
func (j *Judge) Evaluate(results []*search.RetrievalResult) Assessment {
	count := len(results)
	tokens := search.TotalTokens(results)
	best := search.BestScore(results)

	var failures []string
	if count < j.thresholds.MinResults {
		failures = append(failures, fmt.Sprintf("only %d result(s), need %d", count, j.thresholds.MinResults))
	}
	if tokens < j.thresholds.MinTokens {
		failures = append(failures, fmt.Sprintf("only %d context token(s), need %d", tokens, j.thresholds.MinTokens))
	}
	if best < j.thresholds.QualityFloor {
		failures = append(failures, fmt.Sprintf("best score %.4f below floor %.4f", best, j.thresholds.QualityFloor))
	}

	assessment := Assessment{
		Sufficient:  len(failures) == 0,
		ResultCount: count,
		TotalTokens: tokens,
		BestScore:   best,
	}

	if assessment.Sufficient {
		assessment.Reason = fmt.Sprintf("context sufficient: %d results, %d tokens, best score %.4f", count, tokens, best)
	} else {
		assessment.Reason = "context insufficient: " + strings.Join(failures, "; ")
		if note := truncationNote(results); note != "" {
			assessment.Reason += "; " + note
		}
	}

	return assessment
}

// truncationNote flags results whose text appears cut mid-sentence,
// a hint that adjacent chunks would complete the context.
func truncationNote(results []*search.RetrievalResult) string {
	truncated := 0
	for _, r := range results {
		content := strings.TrimSpace(r.Chunk.Content)
		if content == "" {
			continue
		}
		runes := []rune(content)
		if !strings.ContainsRune(".!?", runes[len(runes)-1]) {
			truncated++
		}
	}
	if truncated == 0 {
		return ""
	}
	return fmt.Sprintf("%d chunk(s) end mid-sentence", truncated)
}
