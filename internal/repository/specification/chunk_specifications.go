package specification

import (
	"policy-qa-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByDocumentID filters chunks to a single document.
type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

// ByClauseLabel filters chunks to a canonical clause label. The column
// is qualified because the searches join against documents.
type ByClauseLabel struct {
	Label string
}

func (s ByClauseLabel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_chunks.clause_label = ?", s.Label)
}

// ActiveDocumentsOnly restricts chunk queries to chunks whose parent
// document is active and not soft-deleted.
type ActiveDocumentsOnly struct{}

func (s ActiveDocumentsOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("documents.status = ?", model.DocumentStatusActive).
		Where("documents.deleted_at IS NULL")
}
