package mapper

import (
	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/model"
)

type SearchLogMapper struct{}

func NewSearchLogMapper() *SearchLogMapper {
	return &SearchLogMapper{}
}

func (m *SearchLogMapper) ToModel(e *entity.SearchLog) *model.SearchLog {
	if e == nil {
		return nil
	}

	return &model.SearchLog{
		Id:            e.Id,
		Query:         e.Query,
		SearchType:    e.SearchType,
		ResultCount:   e.ResultCount,
		TopScore:      e.TopScore,
		DurationMs:    e.DurationMs,
		CorrelationId: e.CorrelationId,
		CreatedAt:     e.CreatedAt,
	}
}

func (m *SearchLogMapper) ToEntity(l *model.SearchLog) *entity.SearchLog {
	if l == nil {
		return nil
	}

	return &entity.SearchLog{
		Id:            l.Id,
		Query:         l.Query,
		SearchType:    l.SearchType,
		ResultCount:   l.ResultCount,
		TopScore:      l.TopScore,
		DurationMs:    l.DurationMs,
		CorrelationId: l.CorrelationId,
		CreatedAt:     l.CreatedAt,
	}
}
