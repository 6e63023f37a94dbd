package contract

import (
	"context"

	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

// DocumentRepository is read-only; ingestion owns document writes.
type DocumentRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	FindByIds(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
