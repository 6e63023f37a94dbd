package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DocumentStatusActive   = "active"
	DocumentStatusArchived = "archived"
)

// Document rows are written by the ingestion subsystem; this service
// only reads them.
type Document struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Filename     string         `gorm:"type:varchar(512);not null"`
	DocumentType string         `gorm:"type:varchar(64)"`
	CompanyName  string         `gorm:"type:varchar(255)"`
	Status       string         `gorm:"type:varchar(32);default:'active';index"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
