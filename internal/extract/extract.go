// Package extract pulls plain text out of documents so they can be
// ingested like any typed note.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

// fetchTimeout bounds the whole page download.
const fetchTimeout = 20 * time.Second

// maxPageBytes caps how much of a page is read (1.5 MB).
const maxPageBytes = 1_500_000

// Document is extracted source material ready for ingestion.
type Document struct {
	Title string
	Text  string
}

// PDF extracts the plain text of a PDF file.
func PDF(path string) (Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return Document{}, fmt.Errorf("extracting pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return Document{}, fmt.Errorf("reading pdf text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return Document{}, fmt.Errorf("pdf %s contains no extractable text", path)
	}
	return Document{Title: strings.TrimSuffix(filepath.Base(path), ".pdf"), Text: text}, nil
}

// WebPage downloads a page and extracts its readable content. Falls
// back to the document <title> when readability can't find one.
func WebPage(ctx context.Context, pageURL string) (Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Document{}, fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Document{}, fmt.Errorf("unsupported url scheme: %s", u.Scheme)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", pageURL, err)
	}

	return fromHTML(body, u)
}

// fromHTML runs readability extraction over raw HTML.
func fromHTML(body []byte, u *url.URL) (Document, error) {
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return Document{}, fmt.Errorf("extracting readable content: %w", err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		if doc, qErr := goquery.NewDocumentFromReader(bytes.NewReader(body)); qErr == nil {
			title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return Document{}, fmt.Errorf("page %s contains no readable text", u)
	}
	return Document{Title: title, Text: text}, nil
}
