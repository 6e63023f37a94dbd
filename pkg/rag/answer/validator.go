package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"policy-qa-be/internal/constant"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/internal/repository/contract"
	"policy-qa-be/pkg/embedding"
	"policy-qa-be/pkg/llm"
	"policy-qa-be/pkg/retry"
)

// ValidatorConfig bounds the validator's external calls.
type ValidatorConfig struct {
	EmbeddingTimeout time.Duration
	VerdictTimeout   time.Duration
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		EmbeddingTimeout: 15 * time.Second,
		VerdictTimeout:   60 * time.Second,
	}
}

// Weights blend the four validation checks into one confidence score.
// They should sum to 1.
type Weights struct {
	Format            float64
	CitationExistence float64
	ContextAlignment  float64
	Faithfulness      float64
}

func DefaultWeights() Weights {
	return Weights{
		Format:            0.10,
		CitationExistence: 0.20,
		ContextAlignment:  0.30,
		Faithfulness:      0.40,
	}
}

// Validation is the scored verdict on one draft.
type Validation struct {
	Format            float64  `json:"format"`
	CitationExistence float64  `json:"citation_existence"`
	ContextAlignment  float64  `json:"context_alignment"`
	Faithfulness      float64  `json:"faithfulness"`
	Overall           float64  `json:"overall"`
	Pass              bool     `json:"pass"`
	Issues            []string `json:"issues,omitempty"`
}

var (
	refPattern    = regexp.MustCompile(`\[ref (\d+)\]`)
	clausePattern = regexp.MustCompile(`(?i)\barticle\s+(\d+)\b`)
)

// Validator scores drafts on format, citation existence, context
// alignment, and faithfulness. A model or embedding failure inside a
// check degrades that check's score rather than failing validation.
type Validator struct {
	llm             llm.LLMProvider
	embedder        embedding.EmbeddingProvider
	chunkRepo       contract.DocumentChunkRepository
	cfg             ValidatorConfig
	weights         Weights
	acceptThreshold float64
	retryPolicy     retry.Policy
	logger          logger.ILogger
}

func NewValidator(
	provider llm.LLMProvider,
	embedder embedding.EmbeddingProvider,
	chunkRepo contract.DocumentChunkRepository,
	cfg ValidatorConfig,
	weights Weights,
	acceptThreshold float64,
	log logger.ILogger,
) *Validator {
	return &Validator{
		llm:             provider,
		embedder:        embedder,
		chunkRepo:       chunkRepo,
		cfg:             cfg,
		weights:         weights,
		acceptThreshold: acceptThreshold,
		retryPolicy:     retry.DefaultPolicy(),
		logger:          log,
	}
}

// Validate runs all four checks and blends them with the weights. Pass
// means the weighted overall met the acceptance threshold.
func (v *Validator) Validate(ctx context.Context, draft string, passages []Passage) *Validation {
	result := &Validation{}

	result.Format = v.checkFormat(draft, result)
	result.CitationExistence = v.checkCitations(ctx, draft, result)
	result.ContextAlignment = v.checkAlignment(ctx, draft, passages, result)
	result.Faithfulness = v.checkFaithfulness(ctx, draft, passages, result)

	result.Overall = v.weights.Format*result.Format +
		v.weights.CitationExistence*result.CitationExistence +
		v.weights.ContextAlignment*result.ContextAlignment +
		v.weights.Faithfulness*result.Faithfulness
	result.Pass = result.Overall >= v.acceptThreshold

	v.logger.Info("Validator", "draft validated", map[string]interface{}{
		"format":       result.Format,
		"citations":    result.CitationExistence,
		"alignment":    result.ContextAlignment,
		"faithfulness": result.Faithfulness,
		"overall":      result.Overall,
		"pass":         result.Pass,
	})

	return result
}

// checkFormat verifies the two section headings and at least one
// inline citation. Each missing piece costs a third of the score.
func (v *Validator) checkFormat(draft string, result *Validation) float64 {
	score := 1.0
	if !strings.Contains(draft, constant.AnswerSectionMarker) {
		score -= 1.0 / 3.0
		result.Issues = append(result.Issues, fmt.Sprintf("missing %q heading", constant.AnswerSectionMarker))
	}
	if !strings.Contains(draft, constant.PassagesSectionMarker) {
		score -= 1.0 / 3.0
		result.Issues = append(result.Issues, fmt.Sprintf("missing %q heading", constant.PassagesSectionMarker))
	}
	if !refPattern.MatchString(draft) {
		score -= 1.0 / 3.0
		result.Issues = append(result.Issues, "no [ref N] citations found")
	}
	if score < 0 {
		score = 0
	}
	return score
}

// checkCitations resolves every clause label the draft mentions against
// the corpus. A draft citing no clauses scores full marks; hallucinated
// clause references drag the score down proportionally.
func (v *Validator) checkCitations(ctx context.Context, draft string, result *Validation) float64 {
	labels := extractClauseLabels(draft)
	if len(labels) == 0 {
		return 1.0
	}

	existing, err := v.chunkRepo.ExistingClauses(ctx, labels)
	if err != nil {
		v.logger.Warn("Validator", "clause lookup failed, skipping citation check", map[string]interface{}{"error": err.Error()})
		return 1.0
	}

	known := make(map[string]struct{}, len(existing))
	for _, label := range existing {
		known[label] = struct{}{}
	}

	found := 0
	for _, label := range labels {
		if _, ok := known[label]; ok {
			found++
		} else {
			result.Issues = append(result.Issues, fmt.Sprintf("cited %q does not exist in any document", label))
		}
	}

	return float64(found) / float64(len(labels))
}

// checkAlignment embeds the answer body and the cited passages and
// scores their cosine similarity, clamped to [0, 1].
func (v *Validator) checkAlignment(ctx context.Context, draft string, passages []Passage, result *Validation) float64 {
	cited := CitedPassages(draft, passages)
	if len(cited) == 0 {
		if len(passages) == 0 {
			// Nothing to align against; the faithfulness check still applies.
			return 1.0
		}
		result.Issues = append(result.Issues, "answer cites no provided passages")
		return 0.0
	}

	answerText := answerSection(draft)

	answerVec, err := v.embed(ctx, answerText)
	if err != nil {
		v.logger.Warn("Validator", "answer embedding failed, neutral alignment score", map[string]interface{}{"error": err.Error()})
		return 0.5
	}

	var contextParts []string
	for _, p := range cited {
		contextParts = append(contextParts, p.Chunk.Content)
	}
	contextVec, err := v.embed(ctx, strings.Join(contextParts, "\n\n"))
	if err != nil {
		v.logger.Warn("Validator", "context embedding failed, neutral alignment score", map[string]interface{}{"error": err.Error()})
		return 0.5
	}

	score := cosineSimilarity(answerVec, contextVec)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	if score < 0.5 {
		result.Issues = append(result.Issues, "answer drifts from the cited passages")
	}
	return score
}

type faithfulnessVerdict struct {
	Grounded bool    `json:"grounded"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
}

// checkFaithfulness asks the model to verify the draft claim by claim.
// An unparseable verdict scores a neutral 0.5 rather than failing the
// whole validation.
func (v *Validator) checkFaithfulness(ctx context.Context, draft string, passages []Passage, result *Validation) float64 {
	var b strings.Builder
	b.WriteString(constant.FaithfulnessPromptV1)
	b.WriteString("\n\nPASSAGES:\n")
	b.WriteString(renderPassages(passages))
	b.WriteString("\n\nANSWER:\n")
	b.WriteString(draft)

	verdictCtx, cancel := context.WithTimeout(ctx, v.cfg.VerdictTimeout)
	defer cancel()

	raw, err := retry.Do(verdictCtx, v.retryPolicy, func() (string, error) {
		return v.llm.Generate(verdictCtx, b.String(), llm.WithTemperature(0.0))
	})
	if err != nil {
		v.logger.Warn("Validator", "faithfulness check failed, neutral score", map[string]interface{}{"error": err.Error()})
		return 0.5
	}

	var verdict faithfulnessVerdict
	if err := json.Unmarshal([]byte(extractJSON(raw)), &verdict); err != nil {
		v.logger.Warn("Validator", "faithfulness verdict unparseable, neutral score", map[string]interface{}{"raw": raw})
		return 0.5
	}

	score := verdict.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	if !verdict.Grounded && verdict.Reason != "" {
		result.Issues = append(result.Issues, "ungrounded claims: "+verdict.Reason)
	}
	return score
}

func (v *Validator) embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, v.cfg.EmbeddingTimeout)
	defer cancel()

	res, err := retry.Do(embedCtx, v.retryPolicy, func() (*embedding.EmbeddingResponse, error) {
		return v.embedder.Generate(embedCtx, text, embedding.TaskSemanticSimilarity)
	})
	if err != nil {
		return nil, err
	}
	return res.Embedding.Values, nil
}

// CitedPassages returns the passages whose ref numbers appear in the draft.
func CitedPassages(draft string, passages []Passage) []Passage {
	refs := make(map[int]struct{})
	for _, m := range refPattern.FindAllStringSubmatch(draft, -1) {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		refs[n] = struct{}{}
	}

	var cited []Passage
	for _, p := range passages {
		if _, ok := refs[p.Ref]; ok {
			cited = append(cited, p)
		}
	}
	return cited
}

// answerSection isolates the text under the answer heading so the
// alignment check does not score the restated passages against themselves.
func answerSection(draft string) string {
	body := draft
	if idx := strings.Index(body, constant.AnswerSectionMarker); idx >= 0 {
		body = body[idx+len(constant.AnswerSectionMarker):]
	}
	if idx := strings.Index(body, constant.PassagesSectionMarker); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func extractClauseLabels(draft string) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, m := range clausePattern.FindAllStringSubmatch(draft, -1) {
		label := "article " + m[1]
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

// extractJSON pulls the first balanced JSON object out of a model
// response that may wrap it in prose or code fences.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
