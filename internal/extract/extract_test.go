package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Sourdough Basics</title></head>
<body>
<article>
<h1>Sourdough Basics</h1>
<p>A sourdough starter is a living culture of flour and water. Feed it
daily at room temperature, or weekly when refrigerated, and it will
leaven bread indefinitely.</p>
<p>Hydration levels between 75 and 100 percent keep the culture
active. Lower hydration slows fermentation and sharpens flavor.</p>
</article>
</body>
</html>`

func TestWebPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	doc, err := WebPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("WebPage: %v", err)
	}
	if doc.Title != "Sourdough Basics" {
		t.Errorf("title = %q, want %q", doc.Title, "Sourdough Basics")
	}
	if !strings.Contains(doc.Text, "living culture of flour and water") {
		t.Errorf("extracted text missing article body: %q", doc.Text)
	}
	if strings.Contains(doc.Text, "<p>") {
		t.Errorf("extracted text contains markup: %q", doc.Text)
	}
}

func TestWebPage_RejectsNonHTTPSchemes(t *testing.T) {
	for _, raw := range []string{"ftp://example.com/doc", "file:///etc/passwd", "notaurl"} {
		if _, err := WebPage(context.Background(), raw); err == nil {
			t.Errorf("WebPage(%q) succeeded, want scheme rejection", raw)
		}
	}
}

func TestWebPage_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := WebPage(context.Background(), srv.URL); err == nil {
		t.Error("WebPage accepted a 404 response")
	}
}

func TestFromHTML_TitleFallback(t *testing.T) {
	// Minimal markup readability cannot derive a title from; the <title>
	// element is the fallback.
	html := `<html><head><title>Fallback Title</title></head><body>` +
		strings.Repeat("<p>Plain paragraph text with enough words to count as content.</p>", 10) +
		`</body></html>`

	u, _ := url.Parse("http://example.com/page")
	doc, err := fromHTML([]byte(html), u)
	if err != nil {
		t.Fatalf("fromHTML: %v", err)
	}
	if doc.Title == "" {
		t.Error("title empty, want fallback from <title> element")
	}
	if !strings.Contains(doc.Text, "Plain paragraph text") {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestFromHTML_EmptyPage(t *testing.T) {
	u, _ := url.Parse("http://example.com/empty")
	if _, err := fromHTML([]byte("<html><body></body></html>"), u); err == nil {
		t.Error("fromHTML accepted a page with no readable text")
	}
}

func TestPDF_MissingFile(t *testing.T) {
	if _, err := PDF("/nonexistent/file.pdf"); err == nil {
		t.Error("PDF accepted a missing file")
	}
}
