// Package storage records finished missions so their reports can be listed
// and reloaded later.
package storage

import (
	"context"
	"time"

	"github.com/salekh/genseo-workshop/internal/domain"
)

// MissionRecord is one finished mission.
type MissionRecord struct {
	ID              string        `json:"id"`
	Topic           string        `json:"topic"`
	ContentType     string        `json:"content_type"`
	TargetGroup     string        `json:"target_group"`
	Location        string        `json:"location"`
	Language        string        `json:"language"`
	CompetitorCount int           `json:"competitor_count"`
	Analyzed        bool          `json:"analyzed"`
	Report          domain.Report `json:"report"`
	Duration        time.Duration `json:"duration"`
	CreatedAt       time.Time     `json:"created_at"`
}

// NewRecord summarises report into a record.
func NewRecord(id string, report domain.Report, duration time.Duration, createdAt time.Time) *MissionRecord {
	return &MissionRecord{
		ID:              id,
		Topic:           report.Topic,
		ContentType:     report.ContentType,
		TargetGroup:     report.TargetGroup,
		Location:        report.Location,
		Language:        report.Language,
		CompetitorCount: len(report.Competitors),
		Analyzed:        !report.SemanticAnalysis.IsZero(),
		Report:          report,
		Duration:        duration,
		CreatedAt:       createdAt.UTC(),
	}
}

// Filter selects mission records. Zero values match everything.
type Filter struct {
	Topic  string
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend defines the interface for storing and querying mission records.
type Backend interface {
	Save(ctx context.Context, record *MissionRecord) error
	Query(ctx context.Context, filter Filter) ([]*MissionRecord, error)
	Close() error
}
