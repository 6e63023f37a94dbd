package contract

import (
	"context"

	"policy-qa-be/internal/entity"
	"policy-qa-be/internal/repository/specification"
)

type SearchLogRepository interface {
	Create(ctx context.Context, log *entity.SearchLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SearchLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
