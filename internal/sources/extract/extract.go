// Package extract locates hidden form fields, error banners, "no records"
// sentinels and tabular rows in portal responses by structural query.
// Absent elements yield empty results, never errors; the adapter decides
// whether a missing field is fatal.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document parses a markup body into a queryable document
func Document(body string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// InputValue returns the value attribute of the input element with the given
// name, or false when the element is absent
func InputValue(doc *goquery.Document, name string) (string, bool) {
	sel := doc.Find(`input[name="` + name + `"]`)
	if sel.Length() == 0 {
		return "", false
	}
	return sel.First().AttrOr("value", ""), true
}

// HiddenInputs collects every hidden input of the document (name -> value)
func HiddenInputs(doc *goquery.Document) map[string]string {
	fields := make(map[string]string)
	doc.Find(`input[type="hidden"]`).Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		fields[name] = sel.AttrOr("value", "")
	})
	return fields
}

// Attr returns the attribute value of the first element matching selector
func Attr(doc *goquery.Document, selector, attr string) (string, bool) {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", false
	}
	return sel.First().Attr(attr)
}

// Text returns the trimmed text of the first element matching selector,
// or false when no element matches
func Text(doc *goquery.Document, selector string) (string, bool) {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.First().Text()), true
}

// Rows extracts cell text from every row matching rowSelector, trimmed and
// in source order. Rows with fewer than minCells cells are skipped; the
// thresholds are per-adapter tolerances for header and decoration rows.
func Rows(doc *goquery.Document, rowSelector string, minCells int) [][]string {
	var rows [][]string
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) >= minCells {
			rows = append(rows, cells)
		}
	})
	return rows
}

// ContainsAny reports whether body contains any of the phrases,
// case-insensitively. Used for sentinel detection.
func ContainsAny(body string, phrases []string) bool {
	lower := strings.ToLower(body)
	for _, phrase := range phrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// reCAPTCHA site keys appear in a handful of markup shapes depending on how
// the portal embeds the widget
var siteKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`data-sitekey="([^"]+)"`),
	regexp.MustCompile(`data-sitekey='([^']+)'`),
	regexp.MustCompile(`"sitekey"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`'sitekey'\s*:\s*'([^']+)'`),
	regexp.MustCompile(`grecaptcha\.execute\(\s*['"]([0-9A-Za-z_-]{20,})['"]`),
	regexp.MustCompile(`recaptcha/api\.js\?render=([0-9A-Za-z_-]{20,})`),
}

// RecaptchaSiteKey extracts a reCAPTCHA site key from markup, or returns
// the empty string when none is found
func RecaptchaSiteKey(body string) string {
	for _, pattern := range siteKeyPatterns {
		if matches := pattern.FindStringSubmatch(body); len(matches) > 1 {
			key := strings.TrimSpace(matches[1])
			if len(key) > 10 {
				return key
			}
		}
	}
	return ""
}
