package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Table is the SQL table mission records live in.
const Table = "missions"

var columns = []string{
	"id", "topic", "content_type", "target_group", "location", "language",
	"competitor_count", "analyzed", "report", "duration_ms", "created_at",
}

// InsertSQL builds the INSERT statement for record. created_at is stored as
// unix milliseconds so both SQL backends compare it the same way.
func InsertSQL(ph sq.PlaceholderFormat, record *MissionRecord) (string, []any, error) {
	report, err := json.Marshal(record.Report)
	if err != nil {
		return "", nil, fmt.Errorf("encode report: %w", err)
	}
	return sq.Insert(Table).
		Columns(columns...).
		Values(
			record.ID, record.Topic, record.ContentType, record.TargetGroup,
			record.Location, record.Language, record.CompetitorCount, record.Analyzed,
			report, record.Duration.Milliseconds(), record.CreatedAt.UnixMilli(),
		).
		PlaceholderFormat(ph).
		ToSql()
}

// SelectSQL builds the SELECT statement for filter, newest first. Topic
// matches case-insensitively as a substring.
func SelectSQL(ph sq.PlaceholderFormat, filter Filter) (string, []any, error) {
	q := sq.Select(columns...).From(Table).OrderBy("created_at DESC")
	if filter.Topic != "" {
		q = q.Where(sq.Like{"LOWER(topic)": "%" + strings.ToLower(filter.Topic) + "%"})
	}
	if filter.Since != nil {
		q = q.Where(sq.GtOrEq{"created_at": filter.Since.UnixMilli()})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q.PlaceholderFormat(ph).ToSql()
}

// Scanner is satisfied by *sql.Rows and pgx.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanRecord reads one row produced by SelectSQL.
func ScanRecord(row Scanner) (*MissionRecord, error) {
	var (
		r          MissionRecord
		report     []byte
		durationMs int64
		createdMs  int64
	)
	err := row.Scan(
		&r.ID, &r.Topic, &r.ContentType, &r.TargetGroup, &r.Location, &r.Language,
		&r.CompetitorCount, &r.Analyzed, &report, &durationMs, &createdMs,
	)
	if err != nil {
		return nil, fmt.Errorf("scan mission: %w", err)
	}
	if err := json.Unmarshal(report, &r.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &r, nil
}
