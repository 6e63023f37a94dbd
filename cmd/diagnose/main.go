package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"policy-qa-be/internal/config"
	"policy-qa-be/internal/model"
	"policy-qa-be/internal/repository/specification"
	"policy-qa-be/internal/repository/unitofwork"
	"policy-qa-be/pkg/database"

	"github.com/fatih/color"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Checks every backing service the pipeline depends on and runs one
// end-to-end query against a locally running instance.
func main() {
	cfg := config.Load()

	ok := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	fmt.Println("Pipeline stack diagnostic")
	fmt.Println("=========================")

	healthy := true

	// 1. Postgres + pgvector + corpus
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		fmt.Printf("[%s] postgres: %v\n", fail("FAIL"), err)
		healthy = false
	} else {
		var chunkCount int64
		db.Model(&model.DocumentChunk{}).Count(&chunkCount)
		if chunkCount == 0 {
			fmt.Printf("[%s] postgres: connected, but corpus is empty (run cmd/seed)\n", warn("WARN"))
		} else {
			fmt.Printf("[%s] postgres: %d chunks indexed\n", ok("OK"), chunkCount)
		}

		uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(context.Background())
		documents, err := uow.DocumentRepository().FindAll(context.Background(),
			specification.NotDeleted{},
			specification.OrderBy{Field: "created_at", Desc: true},
			specification.Pagination{Limit: 5},
		)
		if err == nil {
			for _, doc := range documents {
				fmt.Printf("    %-40s %s\n", doc.Filename, doc.Status)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 2. Redis (trace fan-out)
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		fmt.Printf("[%s] redis: %v (trace streaming degraded to single instance)\n", warn("WARN"), err)
	} else {
		fmt.Printf("[%s] redis: reachable\n", ok("OK"))
	}

	// 3. NATS (durable trace events)
	nc, err := nats.Connect(cfg.App.NatsURL, nats.Timeout(3*time.Second))
	if err != nil {
		fmt.Printf("[%s] nats: %v (stage events will not be persisted)\n", warn("WARN"), err)
	} else {
		fmt.Printf("[%s] nats: reachable\n", ok("OK"))
		nc.Close()
	}

	// 4. Ollama (embeddings and generation)
	resp, err := http.Get(cfg.Ai.OllamaBaseURL + "/api/tags")
	if err != nil {
		fmt.Printf("[%s] ollama: %v\n", fail("FAIL"), err)
		healthy = false
	} else {
		resp.Body.Close()
		fmt.Printf("[%s] ollama: reachable (%s)\n", ok("OK"), cfg.Ai.LLMModel)
	}

	// 5. End-to-end query against a running instance
	fmt.Println()
	fmt.Println("Running end-to-end query...")
	payload, _ := json.Marshal(map[string]string{
		"query": "How many days of annual leave do employees accrue per month?",
	})
	answerURL := fmt.Sprintf("http://localhost:%s/api/query/v1/answer", cfg.App.Port)

	client := &http.Client{Timeout: 3 * time.Minute}
	res, err := client.Post(answerURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("[%s] answer endpoint: %v (is cmd/rest running?)\n", fail("FAIL"), err)
		healthy = false
	} else {
		defer res.Body.Close()
		var body struct {
			Data struct {
				Answer     string  `json:"answer"`
				Confidence float64 `json:"confidence"`
				Trace      []struct {
					Stage      string `json:"stage"`
					Outcome    string `json:"outcome"`
					DurationMs int64  `json:"duration_ms"`
				} `json:"trace"`
			} `json:"data"`
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil || res.StatusCode != 200 {
			fmt.Printf("[%s] answer endpoint: status %d\n", fail("FAIL"), res.StatusCode)
			healthy = false
		} else {
			fmt.Printf("[%s] answer endpoint: confidence %.2f\n", ok("OK"), body.Data.Confidence)
			for _, e := range body.Data.Trace {
				fmt.Printf("    %-12s %-6s %dms\n", e.Stage, e.Outcome, e.DurationMs)
			}
		}
	}

	fmt.Println()
	if healthy {
		fmt.Println(ok("Stack healthy."))
		return
	}
	fmt.Println(fail("Stack unhealthy."))
	os.Exit(1)
}
