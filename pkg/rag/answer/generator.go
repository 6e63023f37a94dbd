package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"policy-qa-be/internal/constant"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/pkg/llm"
	"policy-qa-be/pkg/retry"
)

// ErrGenerationFailure marks a draft that could not be produced at all,
// as opposed to one that merely failed validation.
var ErrGenerationFailure = errors.New("answer generation failure")

// GeneratorConfig carries the drafting tunables.
type GeneratorConfig struct {
	Temperature float64
	Timeout     time.Duration
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Temperature: 0.1,
		Timeout:     120 * time.Second,
	}
}

// Generator drafts grounded answers from numbered passages.
type Generator struct {
	llm         llm.LLMProvider
	cfg         GeneratorConfig
	retryPolicy retry.Policy
	logger      logger.ILogger
}

func NewGenerator(provider llm.LLMProvider, cfg GeneratorConfig, log logger.ILogger) *Generator {
	return &Generator{
		llm:         provider,
		cfg:         cfg,
		retryPolicy: retry.DefaultPolicy(),
		logger:      log,
	}
}

// Generate drafts an answer to the question from the passages. On
// regeneration, issues holds the validator's findings from the previous
// draft and is folded into the prompt as corrective feedback.
func (g *Generator) Generate(ctx context.Context, question string, passages []Passage, issues []string) (string, error) {
	prompt := g.buildPrompt(question, passages, issues)

	genCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	draft, err := retry.Do(genCtx, g.retryPolicy, func() (string, error) {
		return g.llm.Generate(genCtx, prompt, llm.WithTemperature(g.cfg.Temperature))
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}

	draft = strings.TrimSpace(draft)
	if draft == "" {
		return "", fmt.Errorf("%w: model returned an empty draft", ErrGenerationFailure)
	}

	g.logger.Info("Generator", "draft produced", map[string]interface{}{
		"passages":    len(passages),
		"regenerated": len(issues) > 0,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return draft, nil
}

func (g *Generator) buildPrompt(question string, passages []Passage, issues []string) string {
	var b strings.Builder
	b.WriteString(constant.AnswerSystemPromptV1)
	b.WriteString("\n\n")

	if len(passages) == 0 {
		b.WriteString(constant.AnswerEmptyContextNoteV1)
		b.WriteString("\n\n")
	} else {
		b.WriteString("PASSAGES:\n")
		b.WriteString(renderPassages(passages))
		b.WriteString("\n\n")
	}

	if len(issues) > 0 {
		b.WriteString(constant.AnswerFeedbackPreambleV1)
		b.WriteString("\n")
		for _, issue := range issues {
			b.WriteString("- ")
			b.WriteString(issue)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("QUESTION: ")
	b.WriteString(question)
	return b.String()
}
