package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"policy-qa-be/internal/repository/specification"
	"policy-qa-be/internal/repository/unitofwork"
	"policy-qa-be/pkg/database"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.DocumentRepository())
	assert.NotNil(t, uow.DocumentChunkRepository())
	assert.NotNil(t, uow.SearchLogRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	ctx := context.Background()

	t.Run("Check Document Repository", func(t *testing.T) {
		count, err := uow.DocumentRepository().Count(ctx)
		assert.NoError(t, err)
		t.Logf("Document count: %d", count)
	})

	t.Run("Check Chunk Repository", func(t *testing.T) {
		count, err := uow.DocumentChunkRepository().Count(ctx)
		assert.NoError(t, err)
		t.Logf("Chunk count: %d", count)
	})

	t.Run("Lexical Search Executes", func(t *testing.T) {
		// Verifies the to_tsquery/ts_rank SQL against a real Postgres
		results, err := uow.DocumentChunkRepository().SearchLexical(ctx, []string{"leave", "annual"}, 5, nil)
		assert.NoError(t, err)
		t.Logf("Lexical hits: %d", len(results))
	})

	t.Run("Vector Search Executes", func(t *testing.T) {
		// A zero vector matches nothing above threshold but proves the
		// pgvector operator and the similarity projection work
		probe := make([]float32, 768)
		probe[0] = 1
		results, err := uow.DocumentChunkRepository().SearchSimilarWithScore(ctx, probe, 5, 0.99, nil)
		assert.NoError(t, err)
		t.Logf("Vector hits: %d", len(results))
	})

	t.Run("Document Listing With Specifications", func(t *testing.T) {
		documents, err := uow.DocumentRepository().FindAll(ctx,
			specification.NotDeleted{},
			specification.OrderBy{Field: "created_at", Desc: true},
			specification.Pagination{Limit: 3},
		)
		assert.NoError(t, err)
		assert.LessOrEqual(t, len(documents), 3)
	})

	t.Run("Existing Clauses Lookup", func(t *testing.T) {
		labels, err := uow.DocumentChunkRepository().ExistingClauses(ctx, []string{"article 12", "article 9999"})
		assert.NoError(t, err)
		t.Logf("Known clauses: %v", labels)
	})
}
