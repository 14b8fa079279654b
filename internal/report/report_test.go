package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/internal/storage"
)

func sampleReport() domain.Report {
	return domain.Report{
		Topic:       "Familienhotel Mallorca",
		ContentType: "Blog",
		TargetGroup: "Familien",
		Location:    "Germany",
		Language:    "German",
		KeywordData: domain.KeywordData{
			MainKeyword:     &domain.Keyword{Keyword: "familienhotel mallorca", AvgSearches: 8100},
			RelatedKeywords: []domain.Keyword{{Keyword: "kinderhotel mallorca"}},
			ProofKeywords:   []string{"strand", "kinderclub"},
		},
		Competitors: []domain.Competitor{
			{Title: "A", Link: "https://a.example", WordCount: 60, Source: domain.SourceSerpAPI},
			{Title: "B <b>", Link: "https://b.example", WordCount: 200, Source: domain.SourceCustomSearch},
		},
		RelatedSearches:  []string{"familienhotel mallorca all inclusive"},
		SemanticAnalysis: domain.SemanticAnalysis{ContentGaps: []string{"Budget options"}},
		Briefing:         "# CONTENT-BRIEFING",
		Evaluation:       "Solid.",
	}
}

func TestGenerateSummary(t *testing.T) {
	s := GenerateSummary(sampleReport())

	if s.MainKeyword != "familienhotel mallorca" || s.MainVolume != 8100 {
		t.Errorf("unexpected main keyword %q %d", s.MainKeyword, s.MainVolume)
	}
	if s.TotalWords != 260 {
		t.Errorf("expected 260 total words, got %d", s.TotalWords)
	}
	if s.BySource[domain.SourceSerpAPI] != 1 || s.BySource[domain.SourceCustomSearch] != 1 {
		t.Errorf("unexpected source breakdown %v", s.BySource)
	}
	if !s.Analyzed || !s.HasBriefing || !s.HasEvaluation {
		t.Errorf("expected analyzed report with briefing and evaluation")
	}

	empty := GenerateSummary(domain.Report{Topic: "x"})
	if empty.Analyzed || empty.HasBriefing || len(empty.BySource) != 0 {
		t.Errorf("unexpected summary for empty report %+v", empty)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded domain.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Topic != "Familienhotel Mallorca" || len(decoded.Competitors) != 2 {
		t.Errorf("unexpected decoded report %+v", decoded)
	}
	if !strings.Contains(buf.String(), "B <b>") {
		t.Errorf("expected unescaped HTML characters in JSON output")
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"SEO Mission Report: Familienhotel Mallorca",
		"Main Keyword:  familienhotel mallorca (8100/month)",
		"Proof:         strand, kinderclub",
		"Competitors: 2 (260 words)",
		"[SerpAPI] A (60 words)",
		"Budget options",
		"Briefing:   yes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestWriteText_DegradedReport(t *testing.T) {
	var buf bytes.Buffer
	r := domain.Report{Topic: "t", KeywordData: domain.KeywordData{Error: "quota exceeded"}}
	if err := WriteText(&buf, r); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "error: quota exceeded") || !strings.Contains(out, "skipped (no competitor content)") {
		t.Errorf("unexpected degraded output:\n%s", out)
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<title>SEO Mission Report: Familienhotel Mallorca</title>") {
		t.Errorf("expected title in HTML")
	}
	if strings.Contains(out, "B <b>") || !strings.Contains(out, "B &lt;b&gt;") {
		t.Errorf("expected competitor title to be escaped")
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteFiles(dir, sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("expected 4 files, got %v", paths)
	}
	briefing, err := os.ReadFile(filepath.Join(dir, FileBriefing))
	if err != nil || string(briefing) != "# CONTENT-BRIEFING" {
		t.Errorf("unexpected briefing file %q %v", briefing, err)
	}

	skipped := t.TempDir()
	paths, err = WriteFiles(skipped, domain.Report{Topic: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Errorf("expected only report.json and report.html, got %v", paths)
	}
	if _, err := os.Stat(filepath.Join(skipped, FileEvaluation)); !os.IsNotExist(err) {
		t.Errorf("evaluation.md should not exist")
	}
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	rec := storage.NewRecord("m-1", domain.Report{Topic: "Familienhotel Mallorca", ContentType: "Blog", Location: "Germany"},
		1234567*time.Microsecond, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	if err := WriteHistory(&buf, []*storage.MissionRecord{rec}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2025-01-02 03:04:05  m-1") || !strings.Contains(out, "took=1.235s") {
		t.Errorf("unexpected history output:\n%s", out)
	}

	buf.Reset()
	_ = WriteHistory(&buf, nil)
	if !strings.Contains(buf.String(), "No missions recorded.") {
		t.Errorf("expected empty history message")
	}
}
