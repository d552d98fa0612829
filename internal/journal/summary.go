package journal

import (
	"bytes"
	"mime"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/recipeui/fetchbridge/internal/domain"
)

const maxTitleRunes = 200

// Summarize builds the journal entry for a completed or failed invocation.
func Summarize(id string, inv domain.Invocation, rec domain.ResponseRecord, callErr error, started time.Time, elapsed time.Duration) domain.Exchange {
	ex := domain.Exchange{
		ID:         id,
		URL:        inv.URL,
		Method:     inv.Payload.Method,
		DurationMs: elapsed.Milliseconds(),
		StartedAt:  started.UTC(),
	}
	if callErr != nil {
		ex.Error = callErr.Error()
		return ex
	}

	ex.Status = rec.Status
	ex.ContentType = rec.ContentType
	// Length of the decoded text, not of the bytes received.
	ex.OutputBytes = len(rec.Output)
	if isHTML(rec.ContentType) {
		ex.Title = htmlTitle(rec.Output)
	}
	return ex
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// htmlTitle extracts the document title, falling back to og:title.
func htmlTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(body))
	if err != nil {
		return ""
	}

	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}
	title = strings.Join(strings.Fields(title), " ")

	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	return title
}
