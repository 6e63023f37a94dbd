package answer

import (
	"context"
	"errors"
	"testing"

	"policy-qa-be/internal/entity"
	"policy-qa-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeLLM struct {
	response string
	err      error
	failures int // calls that fail before responses succeed
	prompts  []string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.failures > 0 {
		f.failures--
		return "", errors.New("model overloaded")
	}
	return f.response, f.err
}

func testPassage(ref int, content string) Passage {
	clause := "article 12"
	section := "Leave Policy"
	return Passage{
		Ref: ref,
		Chunk: &entity.PassageChunk{
			Id:           uuid.New(),
			DocumentId:   uuid.New(),
			PageNumber:   3,
			SectionTitle: &section,
			ClauseLabel:  &clause,
			Content:      content,
		},
		DocumentName: "employee-handbook.pdf",
	}
}

func TestGenerateIncludesPassagesInPrompt(t *testing.T) {
	provider := &fakeLLM{response: "## Answer\nLeave accrues monthly [ref 1].\n\n## Supporting Passages\n[ref 1] employee-handbook.pdf"}
	g := NewGenerator(provider, DefaultGeneratorConfig(), noopLogger{})

	passages := []Passage{testPassage(1, "Employees accrue 1.5 days of leave per month.")}
	draft, err := g.Generate(context.Background(), "how does leave accrue?", passages, nil)

	assert.NoError(t, err)
	assert.Contains(t, draft, "## Answer")

	if assert.Len(t, provider.prompts, 1) {
		prompt := provider.prompts[0]
		assert.Contains(t, prompt, "[ref 1] employee-handbook.pdf, page 3")
		assert.Contains(t, prompt, "article 12")
		assert.Contains(t, prompt, "Employees accrue 1.5 days of leave per month.")
		assert.Contains(t, prompt, "QUESTION: how does leave accrue?")
	}
}

func TestGenerateEmptyContextNote(t *testing.T) {
	provider := &fakeLLM{response: "## Answer\nThe documents contain no information about this.\n\n## Supporting Passages\nNone."}
	g := NewGenerator(provider, DefaultGeneratorConfig(), noopLogger{})

	_, err := g.Generate(context.Background(), "what about pets?", nil, nil)

	assert.NoError(t, err)
	if assert.Len(t, provider.prompts, 1) {
		assert.Contains(t, provider.prompts[0], "No passages were retrieved")
		assert.NotContains(t, provider.prompts[0], "PASSAGES:")
	}
}

func TestGenerateRegenerationFeedback(t *testing.T) {
	provider := &fakeLLM{response: "## Answer\nFixed [ref 1].\n\n## Supporting Passages\n[ref 1]"}
	g := NewGenerator(provider, DefaultGeneratorConfig(), noopLogger{})

	issues := []string{"missing \"## Answer\" heading", "cited \"article 99\" does not exist in any document"}
	_, err := g.Generate(context.Background(), "q", []Passage{testPassage(1, "text")}, issues)

	assert.NoError(t, err)
	if assert.Len(t, provider.prompts, 1) {
		prompt := provider.prompts[0]
		assert.Contains(t, prompt, "failed validation")
		assert.Contains(t, prompt, "- missing \"## Answer\" heading")
		assert.Contains(t, prompt, "- cited \"article 99\" does not exist in any document")
	}
}

func TestGenerateEmptyDraftFails(t *testing.T) {
	provider := &fakeLLM{response: "   "}
	g := NewGenerator(provider, DefaultGeneratorConfig(), noopLogger{})

	_, err := g.Generate(context.Background(), "q", nil, nil)

	assert.ErrorIs(t, err, ErrGenerationFailure)
}

func TestGenerateProviderErrorWrapped(t *testing.T) {
	provider := &fakeLLM{err: errors.New("model overloaded")}
	g := NewGenerator(provider, GeneratorConfig{Temperature: 0.1, Timeout: DefaultGeneratorConfig().Timeout}, noopLogger{})

	_, err := g.Generate(context.Background(), "q", nil, nil)

	assert.ErrorIs(t, err, ErrGenerationFailure)
	assert.Contains(t, err.Error(), "model overloaded")
}
