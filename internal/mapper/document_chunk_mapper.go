package mapper

import (
	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/model"
)

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(c *model.DocumentChunk) *entity.PassageChunk {
	if c == nil {
		return nil
	}

	return &entity.PassageChunk{
		Id:                   c.Id,
		DocumentId:           c.DocumentId,
		ChunkIndex:           c.ChunkIndex,
		PageNumber:           c.PageNumber,
		PrintedPageNumber:    c.PrintedPageNumber,
		SectionTitle:         c.SectionTitle,
		ClauseLabel:          c.ClauseLabel,
		Content:              c.Content,
		TokenCount:           c.TokenCount,
		Embedding:            c.Embedding.Slice(),
		ContentHash:          c.ContentHash,
		ExtractionConfidence: c.ExtractionConfidence,
		CreatedAt:            c.CreatedAt,
	}
}

func (m *DocumentChunkMapper) ToEntities(chunks []*model.DocumentChunk) []*entity.PassageChunk {
	entities := make([]*entity.PassageChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}
