package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/internal/scraper"
)

// ErrDisallowed is returned when robots.txt forbids fetching a page.
var ErrDisallowed = errors.New("disallowed by robots.txt")

var (
	mainSelectors = []string{"main", "article", "[role=main]"}
	chrome        = "nav, header, footer, aside, script, style, noscript, iframe, object, embed, form, button, " +
		".nav, .navbar, .navigation, .sidebar, .menu, .cookie, .cookie-banner, .breadcrumb, .comments, .share, .social"
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Direct fetches pages itself and extracts their main content.
type Direct struct {
	fetcher   *scraper.Fetcher
	robots    *scraper.RobotsTxtAuditor
	converter *md.Converter
	logger    *slog.Logger
}

// NewDirect returns an extractor backed by fetcher. A nil robots auditor
// skips robots.txt checks.
func NewDirect(fetcher *scraper.Fetcher, robots *scraper.RobotsTxtAuditor, logger *slog.Logger) *Direct {
	if logger == nil {
		logger = slog.Default()
	}
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Direct{fetcher: fetcher, robots: robots, converter: converter, logger: logger}
}

// Extract fetches targetURL and converts its main content to Markdown.
func (d *Direct) Extract(ctx context.Context, targetURL string) (domain.ExtractedContent, error) {
	if d.robots != nil {
		allowed, err := d.robots.IsAllowed(ctx, targetURL, d.fetcher.UserAgent())
		if err != nil {
			return domain.ExtractedContent{}, err
		}
		if !allowed {
			return domain.ExtractedContent{}, ErrDisallowed
		}
	}

	page, err := d.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		return domain.ExtractedContent{}, err
	}
	if page.BotWall != "" {
		d.logger.Debug("bot wall detected", "url", targetURL, "vendor", page.BotWall)
		return domain.ExtractedContent{}, fmt.Errorf("blocked by %s", page.BotWall)
	}
	if !page.OK() {
		return domain.ExtractedContent{}, fmt.Errorf("HTTP %d", page.StatusCode)
	}

	return d.convert(page)
}

func (d *Direct) convert(page *scraper.Page) (domain.ExtractedContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return domain.ExtractedContent{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	selection := mainContent(doc)
	selection.Find("script, style, noscript").Remove()

	markdown := d.converter.Convert(selection)
	markdown = strings.TrimSpace(blankLines.ReplaceAllString(markdown, "\n\n"))

	if title == "" {
		title = markdownTitle(markdown)
	}
	if title == "" {
		title = noTitle
	}

	url := page.FinalURL
	if url == "" {
		url = page.URL
	}
	return domain.ExtractedContent{
		URL:         url,
		Title:       title,
		WordCount:   WordCount(markdown),
		MainContent: markdown,
	}, nil
}

func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range mainSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	body := doc.Find("body").First()
	body.Find(chrome).Remove()
	return body
}
