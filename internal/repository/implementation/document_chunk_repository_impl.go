package implementation

import (
	"context"
	"errors"
	"strings"

	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/mapper"
	"policy-qa-be/internal/model"
	"policy-qa-be/internal/repository/contract"
	"policy-qa-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

func (r *DocumentChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentChunkRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PassageChunk, error) {
	var m model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PassageChunk, error) {
	var models []*model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DocumentChunk{}).Count(&count).Error
	return count, err
}

// activeChunks restricts a query to chunks of active, non-deleted
// documents. The chunk-side soft-delete filter is explicit because the
// searches scan into a custom struct, bypassing the model callbacks.
func (r *DocumentChunkRepositoryImpl) activeChunks(db *gorm.DB) *gorm.DB {
	return specification.ActiveDocumentsOnly{}.
		Apply(db.Table("document_chunks")).
		Where("document_chunks.deleted_at IS NULL")
}

func (r *DocumentChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, clauseLabel *string) ([]*entity.ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding <=> query_vector) yields the similarity.
	type result struct {
		model.DocumentChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.activeChunks(r.db.WithContext(ctx)).
		Select("document_chunks.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold)

	if clauseLabel != nil {
		query = specification.ByClauseLabel{Label: *clauseLabel}.Apply(query)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &entity.ScoredChunk{
			Chunk: r.mapper.ToEntity(&res.DocumentChunk),
			Score: res.Similarity,
		}
	}
	return scored, nil
}

func (r *DocumentChunkRepositoryImpl) SearchLexical(ctx context.Context, keywords []string, limit int, clauseLabel *string) ([]*entity.ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	// to_tsquery syntax characters would break the query text
	sanitized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = sanitizeTsQueryTerm(kw)
		if kw != "" {
			sanitized = append(sanitized, kw)
		}
	}
	if len(sanitized) == 0 {
		return nil, nil
	}
	tsQuery := strings.Join(sanitized, " & ")

	type result struct {
		model.DocumentChunk
		Score float64
	}
	var results []result

	query := r.activeChunks(r.db.WithContext(ctx)).
		Select("document_chunks.*, ts_rank(to_tsvector('simple', content), to_tsquery('simple', ?)) as score", tsQuery).
		Where("to_tsvector('simple', content) @@ to_tsquery('simple', ?)", tsQuery)

	if clauseLabel != nil {
		query = specification.ByClauseLabel{Label: *clauseLabel}.Apply(query)
	}

	err := query.
		Order("score DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &entity.ScoredChunk{
			Chunk: r.mapper.ToEntity(&res.DocumentChunk),
			Score: res.Score,
		}
	}
	return scored, nil
}

func sanitizeTsQueryTerm(term string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '&', '|', '!', '(', ')', ':', '*', '\'', '<', '>':
			return -1
		}
		return r
	}, strings.TrimSpace(term))
}

func (r *DocumentChunkRepositoryImpl) FindAdjacent(ctx context.Context, documentId uuid.UUID, chunkIndex, window int) ([]*entity.PassageChunk, error) {
	var models []*model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByDocumentID{DocumentID: documentId},
		specification.OrderBy{Field: "chunk_index"},
	)
	err := query.
		Where("chunk_index BETWEEN ? AND ?", chunkIndex-window, chunkIndex+window).
		Where("chunk_index <> ?", chunkIndex).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentChunkRepositoryImpl) FindByPage(ctx context.Context, documentId uuid.UUID, pageNumber int) ([]*entity.PassageChunk, error) {
	var models []*model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByDocumentID{DocumentID: documentId},
		specification.OrderBy{Field: "chunk_index"},
	)
	err := query.
		Where("page_number = ?", pageNumber).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentChunkRepositoryImpl) FindBySection(ctx context.Context, documentId uuid.UUID, sectionTitle string) ([]*entity.PassageChunk, error) {
	var models []*model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByDocumentID{DocumentID: documentId},
		specification.OrderBy{Field: "chunk_index"},
	)
	err := query.
		Where("section_title = ?", sectionTitle).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentChunkRepositoryImpl) ExistingClauses(ctx context.Context, labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Distinct("clause_label").
		Where("clause_label IN ?", labels).
		Pluck("clause_label", &found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}
