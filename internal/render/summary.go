package render

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxSummaryBytes = 512
	maxHTMLBytes    = 1 << 20 // 1 MiB
)

// Summary produces a one-line description of a response body, used when a
// call fails. HTML error pages are reduced to their title or heading.
func Summary(contentType string, body []byte) string {
	if isHTML(contentType, body) {
		if s := htmlSummary(body); s != "" {
			return s
		}
	}
	return snippet(body)
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 64 {
		head = head[:64]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func htmlSummary(body []byte) string {
	if len(body) > maxHTMLBytes {
		body = body[:maxHTMLBytes]
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	desc := ""
	if node := doc.Find(`meta[name="description"]`).First(); node.Length() > 0 {
		desc, _ = node.Attr("content")
	}

	title := firstNonEmpty(
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
	)
	desc = firstNonEmpty(desc, doc.Find("p").First().Text())

	switch {
	case title != "" && desc != "" && desc != title:
		return collapse(title + ": " + desc)
	case title != "":
		return collapse(title)
	default:
		return collapse(desc)
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	return Clip(s, maxSummaryBytes)
}

// collapse folds whitespace runs so the summary fits on one line.
func collapse(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return Clip(s, maxSummaryBytes)
}

// Clip shortens s to at most max bytes, backing off to a rune boundary, and
// marks the cut with "...".
func Clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
