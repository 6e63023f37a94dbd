package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"time"

	"policy-qa-be/internal/config"
	"policy-qa-be/internal/model"
	"policy-qa-be/pkg/database"
	"policy-qa-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Seeds a small policy corpus so the pipeline can be exercised locally
// without the ingestion service.
func main() {
	cfg := config.Load()

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	var provider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	} else {
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}

	doc := model.Document{
		Id:           uuid.New(),
		Filename:     "employee-handbook-2026.pdf",
		DocumentType: "handbook",
		CompanyName:  "Acme Insurance",
		Status:       model.DocumentStatusActive,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(&doc).Error; err != nil {
		log.Fatalf("Error: Failed to create document: %v", err)
	}

	chunks := []struct {
		Page    int
		Section string
		Clause  string
		Content string
	}{
		{3, "Leave Policy", "article 12", "article 12: Employees accrue 1.5 days of paid annual leave per calendar month of service. Unused leave may be carried over up to a maximum of 10 days into the following year."},
		{3, "Leave Policy", "article 13", "article 13: Sick leave requires a medical certificate for absences exceeding two consecutive working days. Sick leave is paid at 100% of base salary."},
		{4, "Leave Policy", "article 14", "article 14: Parental leave is granted for 16 weeks at full pay for the primary caregiver and 4 weeks for the secondary caregiver."},
		{7, "Termination", "article 21", "article 21: Either party may terminate the employment contract with 30 days written notice. During probation the notice period is 7 days."},
		{7, "Termination", "article 22", "article 22: Severance pay equals one month of base salary per completed year of service, capped at 12 months."},
		{11, "Claims", "article 31", "article 31: Insurance claims must be filed within 90 days of the incident. Late submissions require a written explanation and are approved at the insurer's discretion."},
	}

	ctx := context.Background()
	for i, c := range chunks {
		res, err := provider.Generate(ctx, c.Content, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Fatalf("Error: Failed to embed chunk %d: %v", i, err)
		}

		section := c.Section
		clause := c.Clause
		hash := sha256.Sum256([]byte(c.Content))

		chunk := model.DocumentChunk{
			Id:                   uuid.New(),
			DocumentId:           doc.Id,
			ChunkIndex:           i,
			PageNumber:           c.Page,
			SectionTitle:         &section,
			ClauseLabel:          &clause,
			Content:              c.Content,
			TokenCount:           len(c.Content) / 4,
			Embedding:            pgvector.NewVector(res.Embedding.Values),
			ContentHash:          hex.EncodeToString(hash[:]),
			ExtractionConfidence: 1.0,
			CreatedAt:            time.Now(),
		}
		if err := db.Create(&chunk).Error; err != nil {
			log.Fatalf("Error: Failed to create chunk %d: %v", i, err)
		}
		fmt.Printf("Seeded chunk %d (%s, page %d)\n", i, clause, c.Page)
	}

	log.Printf("Success: Seeded document %s with %d chunks.", doc.Filename, len(chunks))
}
