package service

import (
	"context"
	"encoding/json"
	"time"

	"policy-qa-be/internal/dto"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/internal/pkg/serverutils"
	"policy-qa-be/internal/repository/unitofwork"
	"policy-qa-be/pkg/rag/answer"
	"policy-qa-be/pkg/rag/pipeline"
	"policy-qa-be/pkg/rag/search"

	"github.com/google/uuid"
)

type IQueryService interface {
	Answer(ctx context.Context, req *dto.AnswerRequest) (*dto.AnswerResponse, error)
}

type queryService struct {
	orchestrator     *pipeline.Orchestrator
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewQueryService(
	orchestrator *pipeline.Orchestrator,
	publisherService IPublisherService,
	log logger.ILogger,
) IQueryService {
	return &queryService{
		orchestrator:     orchestrator,
		publisherService: publisherService,
		logger:           log,
	}
}

func (s *queryService) Answer(ctx context.Context, req *dto.AnswerRequest) (*dto.AnswerResponse, error) {
	correlationId := req.CorrelationId
	if correlationId == "" {
		correlationId = uuid.NewString()
	}

	start := time.Now()
	result, err := s.orchestrator.Run(ctx, correlationId, req.Query, req.TaskHint)
	if err != nil {
		s.publishCompleted(ctx, &dto.AnswerCompletedMessage{
			CorrelationId: correlationId,
			Query:         req.Query,
			DurationMs:    time.Since(start).Milliseconds(),
			Failed:        true,
		})

		if pipeline.IsRetrievalFailure(err) {
			return nil, serverutils.NewApiError(502, "RETRIEVAL_FAILURE", "search backend unavailable", err)
		}
		return nil, serverutils.NewApiError(500, "PIPELINE_FAILURE", "answer pipeline failed", err)
	}

	s.publishCompleted(ctx, &dto.AnswerCompletedMessage{
		CorrelationId: correlationId,
		Query:         req.Query,
		Task:          result.Task,
		ResultCount:   result.ResultCount,
		TopScore:      result.TopScore,
		DurationMs:    time.Since(start).Milliseconds(),
		Confidence:    result.Confidence,
	})

	return mapAnswerResponse(result), nil
}

func (s *queryService) publishCompleted(ctx context.Context, msg *dto.AnswerCompletedMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.logger.Warn("QueryService", "failed to publish completion message", map[string]interface{}{"error": err.Error()})
	}
}

func mapAnswerResponse(result *pipeline.Result) *dto.AnswerResponse {
	res := &dto.AnswerResponse{
		CorrelationId:  result.CorrelationId,
		Task:           result.Task,
		Answer:         result.Answer,
		Citations:      make([]dto.CitationResponse, 0, len(result.Citations)),
		Confidence:     result.Confidence,
		PartialContext: result.PartialContext,
		Suggestions:    result.Suggestions,
		Trace:          make([]dto.StageEventResponse, 0, len(result.Trace)),
	}

	for _, c := range result.Citations {
		res.Citations = append(res.Citations, dto.CitationResponse{
			Ref:          c.Ref,
			DocumentId:   c.DocumentId,
			DocumentName: c.DocumentName,
			Page:         c.Page,
			ClauseLabel:  c.ClauseLabel,
		})
	}

	if v := result.Validation; v != nil {
		res.Validation = &dto.ValidationResponse{
			Format:            v.Format,
			CitationExistence: v.CitationExistence,
			ContextAlignment:  v.ContextAlignment,
			Faithfulness:      v.Faithfulness,
			Overall:           v.Overall,
			Pass:              v.Pass,
			Issues:            v.Issues,
		}
	}

	for _, e := range result.Trace {
		res.Trace = append(res.Trace, dto.StageEventResponse{
			Stage:      e.Stage,
			Outcome:    e.Outcome,
			DurationMs: e.DurationMs,
			Detail:     e.Detail,
			At:         e.At,
		})
	}

	return res
}

// passageBuilder resolves document names for retrieval results so the
// generator can render attributable passages.
type passageBuilder struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewPassageBuilder(uowFactory unitofwork.RepositoryFactory) pipeline.PassageBuilder {
	return &passageBuilder{uowFactory: uowFactory}
}

func (b *passageBuilder) Build(ctx context.Context, results []*search.RetrievalResult) ([]answer.Passage, error) {
	uow := b.uowFactory.NewUnitOfWork(ctx)

	ids := make([]uuid.UUID, 0, len(results))
	seen := make(map[uuid.UUID]struct{}, len(results))
	for _, r := range results {
		if _, dup := seen[r.Chunk.DocumentId]; dup {
			continue
		}
		seen[r.Chunk.DocumentId] = struct{}{}
		ids = append(ids, r.Chunk.DocumentId)
	}

	documents, err := uow.DocumentRepository().FindByIds(ctx, ids)
	if err != nil {
		return nil, err
	}

	passages := make([]answer.Passage, 0, len(results))
	for i, r := range results {
		name := "unknown document"
		if doc, ok := documents[r.Chunk.DocumentId]; ok {
			name = doc.Filename
		}
		passages = append(passages, answer.Passage{
			Ref:          i + 1,
			Chunk:        r.Chunk,
			DocumentName: name,
		})
	}
	return passages, nil
}
