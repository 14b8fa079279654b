// Package report renders mission reports for people and files.
package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/internal/storage"
)

// Summary contains aggregated figures about one mission report.
type Summary struct {
	Topic           string
	ContentType     string
	TargetGroup     string
	Location        string
	Language        string
	MainKeyword     string
	MainVolume      int64
	KeywordError    string
	RelatedKeywords []string
	ProofKeywords   []string
	Competitors     []domain.Competitor
	BySource        map[domain.CompetitorSource]int
	TotalWords      int
	RelatedSearches []string
	ContentGaps     []string
	AnalysisError   string
	Analyzed        bool
	HasBriefing     bool
	HasEvaluation   bool
}

// GenerateSummary derives the summary figures of r.
func GenerateSummary(r domain.Report) Summary {
	s := Summary{
		Topic:           r.Topic,
		ContentType:     r.ContentType,
		TargetGroup:     r.TargetGroup,
		Location:        r.Location,
		Language:        r.Language,
		KeywordError:    r.KeywordData.Error,
		ProofKeywords:   r.KeywordData.ProofKeywords,
		Competitors:     r.Competitors,
		BySource:        make(map[domain.CompetitorSource]int),
		RelatedSearches: r.RelatedSearches,
		ContentGaps:     r.SemanticAnalysis.ContentGaps,
		AnalysisError:   r.SemanticAnalysis.Error,
		Analyzed:        !r.SemanticAnalysis.IsZero(),
		HasBriefing:     r.Briefing != "",
		HasEvaluation:   r.Evaluation != "",
	}
	if mk := r.KeywordData.MainKeyword; mk != nil {
		s.MainKeyword = mk.Keyword
		s.MainVolume = mk.AvgSearches
	}
	for _, kw := range r.KeywordData.RelatedKeywords {
		s.RelatedKeywords = append(s.RelatedKeywords, kw.Keyword)
	}
	for _, c := range r.Competitors {
		s.BySource[c.Source]++
		s.TotalWords += c.WordCount
	}
	return s
}

// WriteJSON writes the full report as indented JSON.
func WriteJSON(w io.Writer, r domain.Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

const textTmpl = `SEO Mission Report: {{.Topic}}
------------------
Content Type:  {{.ContentType}}
Target Group:  {{.TargetGroup}}
Market:        {{.Location}} / {{.Language}}
{{if .KeywordError}}
Keywords:      error: {{.KeywordError}}
{{- else}}
Main Keyword:  {{if .MainKeyword}}{{.MainKeyword}} ({{.MainVolume}}/month){{else}}none{{end}}
Related:       {{join .RelatedKeywords ", "}}
Proof:         {{join .ProofKeywords ", "}}
{{- end}}

Competitors: {{len .Competitors}} ({{.TotalWords}} words)
{{- range .Competitors}}
  [{{.Source}}] {{.Title}} ({{.WordCount}} words)
    {{.Link}}
{{- else}}
  None
{{- end}}

Related Searches:
{{- range .RelatedSearches}}
  {{.}}
{{- else}}
  None
{{- end}}

Content Gaps:
{{- if .AnalysisError}}
  analysis failed: {{.AnalysisError}}
{{- else if not .Analyzed}}
  skipped (no competitor content)
{{- else}}
{{- range .ContentGaps}}
  {{.}}
{{- else}}
  None
{{- end}}
{{- end}}

Briefing:   {{if .HasBriefing}}yes{{else}}no{{end}}
Evaluation: {{if .HasEvaluation}}yes{{else}}no{{end}}
`

var funcs = template.FuncMap{
	"join": func(items []string, sep string) string {
		if len(items) == 0 {
			return "-"
		}
		return strings.Join(items, sep)
	},
}

// WriteText writes a human-readable summary of r.
func WriteText(w io.Writer, r domain.Report) error {
	t, err := template.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	if err := t.Execute(w, GenerateSummary(r)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>SEO Mission Report: {{.Topic}}</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>{{.Topic}}</h1>
  <p>{{.ContentType}} for {{.TargetGroup}} ({{.Location}}, {{.Language}})</p>

  <div class="stat-card">
    <div>Main Keyword</div>
    <div class="stat-val">{{if .MainKeyword}}{{.MainKeyword}}{{else}}-{{end}}</div>
  </div>
  <div class="stat-card">
    <div>Monthly Searches</div>
    <div class="stat-val">{{.MainVolume}}</div>
  </div>
  <div class="stat-card">
    <div>Competitors</div>
    <div class="stat-val">{{len .Competitors}}</div>
  </div>
  <div class="stat-card">
    <div>Content Gaps</div>
    <div class="stat-val">{{len .ContentGaps}}</div>
  </div>

  <h3>Competitors</h3>
  <table>
    <tr><th>Title</th><th>Source</th><th>Words</th></tr>
    {{- range .Competitors}}
    <tr><td><a href="{{.Link}}">{{.Title}}</a></td><td>{{.Source}}</td><td>{{.WordCount}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>

  <h3>Content Gaps</h3>
  <ul>
    {{- range .ContentGaps}}
    <li>{{.}}</li>
    {{- else}}
    <li>None</li>
    {{- end}}
  </ul>
</body>
</html>
`

// WriteHTML writes a basic HTML overview of r.
func WriteHTML(w io.Writer, r domain.Report) error {
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	if err := t.Execute(w, GenerateSummary(r)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Files written by WriteFiles.
const (
	FileJSON       = "report.json"
	FileHTML       = "report.html"
	FileBriefing   = "briefing.md"
	FileEvaluation = "evaluation.md"
)

// WriteFiles saves r into dir: the JSON report, an HTML overview and, when
// present, the briefing and evaluation as Markdown. It returns the paths
// written.
func WriteFiles(dir string, r domain.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	write := func(name string, render func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if err := render(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}
	text := func(s string) func(io.Writer) error {
		return func(w io.Writer) error {
			_, err := io.WriteString(w, s)
			return err
		}
	}

	if err := write(FileJSON, func(w io.Writer) error { return WriteJSON(w, r) }); err != nil {
		return written, err
	}
	if err := write(FileHTML, func(w io.Writer) error { return WriteHTML(w, r) }); err != nil {
		return written, err
	}
	if r.Briefing != "" {
		if err := write(FileBriefing, text(r.Briefing)); err != nil {
			return written, err
		}
	}
	if r.Evaluation != "" {
		if err := write(FileEvaluation, text(r.Evaluation)); err != nil {
			return written, err
		}
	}
	return written, nil
}

const historyTmpl = `{{- range .}}
{{.CreatedAt.Format "2006-01-02 15:04:05"}}  {{.ID}}
  {{.Topic}} ({{.ContentType}}, {{.Location}})  competitors={{.CompetitorCount}} analyzed={{.Analyzed}} took={{duration .Duration}}
{{- else}}
No missions recorded.
{{- end}}
`

// WriteHistory lists stored missions, one block per record.
func WriteHistory(w io.Writer, records []*storage.MissionRecord) error {
	t, err := template.New("history").Funcs(template.FuncMap{
		"duration": func(d time.Duration) string { return d.Round(time.Millisecond).String() },
	}).Parse(historyTmpl)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	if err := t.Execute(w, records); err != nil {
		return fmt.Errorf("render history: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}
