package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/internal/storage"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if GENSEO_TEST_PG_DSN is set
	dsn := os.Getenv("GENSEO_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: GENSEO_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	topic := "pg-test-" + uuid.NewString()
	rec := storage.NewRecord(uuid.NewString(), domain.Report{
		Topic:    topic,
		Briefing: "# Briefing",
	}, 1500*time.Millisecond, time.Now())

	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{Topic: topic})
	if err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	got := results[0]
	if got.ID != rec.ID || got.Duration != rec.Duration || got.Report.Briefing != "# Briefing" {
		t.Errorf("unexpected record %+v", got)
	}
}
