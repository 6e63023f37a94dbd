package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"policy-qa-be/internal/constant"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/pkg/events"
	"policy-qa-be/pkg/rag/answer"
	"policy-qa-be/pkg/rag/expand"
	"policy-qa-be/pkg/rag/judge"
	"policy-qa-be/pkg/rag/query"
	"policy-qa-be/pkg/rag/search"

	"github.com/google/uuid"
)

// EventSink receives trace events as the pipeline moves between stages.
// A sink failure never fails the pipeline.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

// PassageBuilder resolves retrieval results into numbered passages with
// their document names attached.
type PassageBuilder interface {
	Build(ctx context.Context, results []*search.RetrievalResult) ([]answer.Passage, error)
}

// Limits bound the two feedback loops.
type Limits struct {
	MaxExpansions    int
	MaxRegenerations int
}

func DefaultLimits() Limits {
	return Limits{
		MaxExpansions:    3,
		MaxRegenerations: 2,
	}
}

// Citation points one [ref N] marker at its source location.
type Citation struct {
	Ref          int       `json:"ref"`
	DocumentId   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	Page         int       `json:"page"`
	ClauseLabel  *string   `json:"clause_label,omitempty"`
}

// Result is the pipeline's final output for one question.
type Result struct {
	CorrelationId  string
	Task           string
	Answer         string
	Citations      []Citation
	Confidence     float64
	ResultCount    int
	TopScore       float64
	PartialContext bool
	Validation     *answer.Validation
	Suggestions    []string
	Trace          []StageEvent
}

// Orchestrator drives the answer pipeline as an explicit state
// machine. Every transition is recorded on the trace and mirrored to
// the event sink.
type Orchestrator struct {
	preprocessor *query.Preprocessor
	retriever    *search.HybridRetriever
	judge        *judge.Judge
	expander     *expand.Expander
	generator    *answer.Generator
	validator    *answer.Validator
	passages     PassageBuilder
	limits       Limits
	sink         EventSink
	logger       logger.ILogger
}

func NewOrchestrator(
	preprocessor *query.Preprocessor,
	retriever *search.HybridRetriever,
	j *judge.Judge,
	expander *expand.Expander,
	generator *answer.Generator,
	validator *answer.Validator,
	passages PassageBuilder,
	limits Limits,
	sink EventSink,
	log logger.ILogger,
) *Orchestrator {
	return &Orchestrator{
		preprocessor: preprocessor,
		retriever:    retriever,
		judge:        j,
		expander:     expander,
		generator:    generator,
		validator:    validator,
		passages:     passages,
		limits:       limits,
		sink:         sink,
		logger:       log,
	}
}

type stageHandler func(ctx context.Context, state *conversationState) (string, error)

// Run executes the state machine for one question until DONE or FAILED.
func (o *Orchestrator) Run(ctx context.Context, correlationId, rawQuery, taskHint string) (*Result, error) {
	if correlationId == "" {
		correlationId = uuid.NewString()
	}

	state := &conversationState{
		correlationId: correlationId,
		rawQuery:      rawQuery,
		taskHint:      taskHint,
	}

	handlers := map[string]stageHandler{
		constant.StageRouting:    o.handleRouting,
		constant.StageRetrieving: o.handleRetrieving,
		constant.StageJudging:    o.handleJudging,
		constant.StageExpanding:  o.handleExpanding,
		constant.StageGenerating: o.handleGenerating,
		constant.StageValidating: o.handleValidating,
	}

	stage := constant.StageRouting
	for stage != constant.StageDone && stage != constant.StageFailed {
		if err := ctx.Err(); err != nil {
			state.failure = err
			o.record(ctx, state, stage, "cancelled", 0, nil)
			stage = constant.StageFailed
			break
		}

		handler, ok := handlers[stage]
		if !ok {
			state.failure = fmt.Errorf("no handler for stage %s", stage)
			stage = constant.StageFailed
			break
		}

		start := time.Now()
		next, err := handler(ctx, state)
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			state.failure = err
			o.record(ctx, state, stage, "error", elapsed, map[string]interface{}{"error": err.Error()})
			stage = constant.StageFailed
			break
		}

		o.record(ctx, state, stage, "ok", elapsed, stageDetail(stage, state))
		stage = next
	}

	if stage == constant.StageFailed {
		o.publish(ctx, events.BaseEvent{
			Type: events.TypeAnswerFailed,
			Data: map[string]interface{}{
				"correlation_id": state.correlationId,
				"error":          errString(state.failure),
			},
			OccurredAt: time.Now(),
		})
		return nil, fmt.Errorf("pipeline failed at stage %s: %w", lastStage(state), state.failure)
	}

	return o.buildResult(state), nil
}

func (o *Orchestrator) handleRouting(ctx context.Context, state *conversationState) (string, error) {
	decision := Route(state.rawQuery, state.taskHint)
	state.task = decision.Task

	if state.task != constant.TaskSearch {
		// Upload and management requests are served by other surfaces;
		// the pipeline only answers questions.
		state.draft = fmt.Sprintf("This request was classified as a %q task and is handled outside the answer pipeline.", state.task)
		return constant.StageDone, nil
	}

	state.pre = o.preprocessor.Preprocess(state.rawQuery)
	return constant.StageRetrieving, nil
}

func (o *Orchestrator) handleRetrieving(ctx context.Context, state *conversationState) (string, error) {
	retrieval, err := o.retriever.Retrieve(ctx, state.pre)
	if err != nil {
		return "", err
	}
	state.results = retrieval.Results
	return constant.StageJudging, nil
}

func (o *Orchestrator) handleJudging(ctx context.Context, state *conversationState) (string, error) {
	state.assessment = o.judge.Evaluate(state.results)
	if state.assessment.Sufficient {
		return constant.StageGenerating, nil
	}
	if state.expansions < o.limits.MaxExpansions {
		return constant.StageExpanding, nil
	}
	state.partialContext = true
	return constant.StageGenerating, nil
}

func (o *Orchestrator) handleExpanding(ctx context.Context, state *conversationState) (string, error) {
	expanded, added, err := o.expander.Expand(ctx, state.results)
	if err != nil {
		return "", err
	}
	state.results = expanded
	state.expansions++

	if added == 0 {
		// The corpus has nothing more around these hits; further rounds
		// would repeat the same lookups.
		state.partialContext = true
		return constant.StageGenerating, nil
	}
	return constant.StageJudging, nil
}

func (o *Orchestrator) handleGenerating(ctx context.Context, state *conversationState) (string, error) {
	if state.passages == nil {
		built, err := o.passages.Build(ctx, state.results)
		if err != nil {
			return "", err
		}
		state.passages = built
	}

	draft, err := o.generator.Generate(ctx, state.rawQuery, state.passages, state.lastIssues)
	if err != nil {
		return "", err
	}
	state.draft = draft
	return constant.StageValidating, nil
}

func (o *Orchestrator) handleValidating(ctx context.Context, state *conversationState) (string, error) {
	validation := o.validator.Validate(ctx, state.draft, state.passages)

	if state.validation == nil || validation.Overall > state.validation.Overall {
		state.validation = validation
		state.bestDraft = state.draft
	}

	if validation.Pass {
		return constant.StageDone, nil
	}

	if state.regenerations < o.limits.MaxRegenerations {
		state.regenerations++
		state.lastIssues = validation.Issues
		return constant.StageGenerating, nil
	}

	// Regeneration budget spent. Ship the best draft with its honest
	// confidence instead of refusing to answer.
	state.draft = state.bestDraft
	return constant.StageDone, nil
}

func (o *Orchestrator) buildResult(state *conversationState) *Result {
	result := &Result{
		CorrelationId:  state.correlationId,
		Task:           state.task,
		Answer:         state.draft,
		ResultCount:    len(state.results),
		TopScore:       search.BestScore(state.results),
		PartialContext: state.partialContext,
		Validation:     state.validation,
		Trace:          state.trace,
	}

	if state.validation != nil {
		result.Confidence = state.validation.Overall
	}
	if state.pre != nil {
		result.Suggestions = state.pre.Suggestions
	}

	for _, p := range answer.CitedPassages(state.draft, state.passages) {
		result.Citations = append(result.Citations, Citation{
			Ref:          p.Ref,
			DocumentId:   p.Chunk.DocumentId,
			DocumentName: p.DocumentName,
			Page:         p.Chunk.PageNumber,
			ClauseLabel:  p.Chunk.ClauseLabel,
		})
	}

	return result
}

func (o *Orchestrator) record(ctx context.Context, state *conversationState, stage, outcome string, durationMs int64, detail map[string]interface{}) {
	event := StageEvent{
		Stage:      stage,
		Outcome:    outcome,
		DurationMs: durationMs,
		Detail:     detail,
		At:         time.Now(),
	}
	state.trace = append(state.trace, event)

	o.logger.Info("Orchestrator", "stage completed", map[string]interface{}{
		"correlation_id": state.correlationId,
		"stage":          stage,
		"outcome":        outcome,
		"duration_ms":    durationMs,
	})

	o.publish(ctx, events.NewStageEvent(state.correlationId, stage, outcome, durationMs, detail))
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Publish(ctx, event); err != nil {
		o.logger.Warn("Orchestrator", "event publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func stageDetail(stage string, state *conversationState) map[string]interface{} {
	switch stage {
	case constant.StageRouting:
		return map[string]interface{}{"task": state.task}
	case constant.StageRetrieving:
		return map[string]interface{}{"results": len(state.results)}
	case constant.StageJudging:
		return map[string]interface{}{
			"sufficient": state.assessment.Sufficient,
			"reason":     state.assessment.Reason,
		}
	case constant.StageExpanding:
		return map[string]interface{}{"round": state.expansions, "results": len(state.results)}
	case constant.StageGenerating:
		return map[string]interface{}{"passages": len(state.passages), "regeneration": state.regenerations}
	case constant.StageValidating:
		if state.validation != nil {
			return map[string]interface{}{"overall": state.validation.Overall, "pass": state.validation.Pass}
		}
	}
	return nil
}

func lastStage(state *conversationState) string {
	if len(state.trace) == 0 {
		return constant.StageRouting
	}
	return state.trace[len(state.trace)-1].Stage
}

func errString(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

// IsRetrievalFailure reports whether the pipeline error came from the
// retrieval stage, which callers map to a 502-style upstream failure.
func IsRetrievalFailure(err error) bool {
	return errors.Is(err, search.ErrRetrievalFailure)
}
