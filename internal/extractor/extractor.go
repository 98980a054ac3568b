// Package extractor parses catalog listing and detail pages with goquery.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

// ErrMalformedPage is returned when a page cannot be turned into a record.
var ErrMalformedPage = errors.New("malformed page")

var (
	decimalPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	integerPattern = regexp.MustCompile(`[0-9]+`)
	slugStrip      = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// Labels matched against the product information table headers.
const (
	labelPriceInclTax = "Price (incl. tax)"
	labelPriceExclTax = "Price (excl. tax)"
	labelReviews      = "Number of reviews"
)

// Extractor turns fetched HTML into records. It is stateless after construction.
type Extractor struct {
	marker  string
	ratings map[string]float64
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	cfg = cfg.WithDefaults()

	ratings := make(map[string]float64, len(cfg.RatingScale))
	for i, word := range cfg.RatingScale {
		ratings[word] = float64(i)
	}

	return &Extractor{
		marker:  cfg.RecordMarker,
		ratings: ratings,
	}
}

// ExtractRecord parses a detail page into a candidate record. pageURL is the
// post-redirect URL and becomes the record's source URL. Any panic while
// walking the document is returned as ErrMalformedPage.
func (e *Extractor) ExtractRecord(body []byte, pageURL string) (rec *domain.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("%w: %v", ErrMalformedPage, r)
		}
	}()

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPage)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse page url: %w", ErrMalformedPage, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPage, err)
	}

	rec = &domain.Record{
		SourceURL:   pageURL,
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		Category:    extractCategory(doc),
		Price:       parseDecimal(doc.Find("p.price_color").First().Text()),
		InStock:     extractInStock(doc),
		Rating:      e.extractRating(doc),
	}
	extractProductTable(doc, rec)
	rec.CoverImageURL = extractCoverImage(doc, base)
	rec.RemoteID = e.remoteID(base, rec.Title)
	rec.RawSnapshot = rec.Snapshot()

	return rec, nil
}

// ExtractRecordURLs returns the absolute detail-page URLs linked from a listing page.
func (e *Extractor) ExtractRecordURLs(body []byte, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse listing url: %w", ErrMalformedPage, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPage, err)
	}

	var urls []string
	doc.Find("article.product_pod h3 a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, refErr := url.Parse(strings.TrimSpace(href))
		if refErr != nil {
			return
		}
		urls = append(urls, base.ResolveReference(ref).String())
	})

	return urls, nil
}

// ExtractTotalPages reads the "Page 1 of N" indicator. It returns 1 when the
// indicator is missing or unparsable.
func (e *Extractor) ExtractTotalPages(body []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 1
	}

	parts := strings.Fields(doc.Find("li.current").First().Text())
	if len(parts) == 0 {
		return 1
	}

	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func extractTitle(doc *goquery.Document) string {
	heading := doc.Find("h1").First()
	if main := doc.Find("div.product_main").First(); main.Length() > 0 {
		heading = main.Find("h1").First()
	}
	if title := strings.TrimSpace(heading.Text()); title != "" {
		return title
	}
	return DefaultTitle
}

func extractDescription(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if desc := strings.TrimSpace(content); desc != "" {
			return desc
		}
	}
	return strings.TrimSpace(doc.Find("div#product_description").First().NextAllFiltered("p").First().Text())
}

func extractCategory(doc *goquery.Document) string {
	links := doc.Find("ul.breadcrumb a")
	// The first link is the home page.
	if links.Length() < 2 {
		return DefaultCategory
	}
	if category := strings.TrimSpace(links.Last().Text()); category != "" {
		return category
	}
	return DefaultCategory
}

func extractProductTable(doc *goquery.Document, rec *domain.Record) {
	doc.Find("table.table-striped tr").Each(func(_ int, row *goquery.Selection) {
		header := row.Find("th").First()
		data := row.Find("td").First()
		if header.Length() == 0 || data.Length() == 0 {
			return
		}

		label := strings.TrimSpace(header.Text())
		value := strings.TrimSpace(data.Text())
		switch {
		case strings.Contains(label, labelPriceInclTax):
			rec.PriceIncludingTax = parseOptionalDecimal(value)
		case strings.Contains(label, labelPriceExclTax):
			rec.PriceExcludingTax = parseOptionalDecimal(value)
		case strings.Contains(label, labelReviews):
			if m := integerPattern.FindString(value); m != "" {
				rec.ReviewsCount, _ = strconv.Atoi(m)
			}
		}
	})
}

func extractInStock(doc *goquery.Document) bool {
	text := doc.Find("p.instock.availability").First().Text()
	return strings.Contains(strings.ToLower(text), "in stock")
}

func (e *Extractor) extractRating(doc *goquery.Document) float64 {
	class, ok := doc.Find("p.star-rating").First().Attr("class")
	if !ok {
		return 0
	}
	for _, token := range strings.Fields(class) {
		if rating, found := e.ratings[token]; found {
			return rating
		}
	}
	return 0
}

func extractCoverImage(doc *goquery.Document, base *url.URL) *string {
	src, ok := doc.Find("div.item.active img").First().Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return nil
	}
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return nil
	}
	abs := base.ResolveReference(ref).String()
	return &abs
}

// remoteID takes the path segment after the marker segment
// (".../catalogue/<id>/index.html"), else a slug of the title.
func (e *Extractor) remoteID(pageURL *url.URL, title string) string {
	segments := strings.Split(pageURL.Path, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, e.marker) || i+1 >= len(segments) {
			continue
		}
		next := segments[i+1]
		if next != "" && !strings.HasPrefix(next, "index") {
			return strings.ReplaceAll(next, "_", "-")
		}
	}
	return Slugify(title)
}

// Slugify lowercases s, drops punctuation, and joins words with hyphens,
// truncated to 50 characters.
func Slugify(s string) string {
	slug := strings.ToLower(strings.ReplaceAll(slugStrip.ReplaceAllString(s, ""), " ", "-"))
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return slug
}

func parseDecimal(text string) float64 {
	if v := parseOptionalDecimal(text); v != nil {
		return *v
	}
	return 0
}

func parseOptionalDecimal(text string) *float64 {
	m := decimalPattern.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}
