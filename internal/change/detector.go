package change

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
)

// NumericTolerance is the largest numeric difference still treated as unchanged.
const NumericTolerance = 0.01

// Monitored field names.
const (
	FieldTitle             = "title"
	FieldDescription       = "description"
	FieldCategory          = "category"
	FieldPrice             = "price"
	FieldPriceIncludingTax = "price_including_tax"
	FieldPriceExcludingTax = "price_excluding_tax"
	FieldInStock           = "in_stock"
	FieldRating            = "rating"
	FieldReviewsCount      = "reviews_count"
	FieldCoverImage        = "cover_image"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindNumeric
	kindBool
)

type field struct {
	name  string
	kind  fieldKind
	get   func(*domain.Record) any
	apply func(dst, src *domain.Record)
}

// monitored lists the fields that take part in change detection, in report order.
var monitored = []field{
	{FieldTitle, kindText,
		func(r *domain.Record) any { return r.Title },
		func(d, s *domain.Record) { d.Title = s.Title }},
	{FieldDescription, kindText,
		func(r *domain.Record) any { return r.Description },
		func(d, s *domain.Record) { d.Description = s.Description }},
	{FieldCategory, kindText,
		func(r *domain.Record) any { return r.Category },
		func(d, s *domain.Record) { d.Category = s.Category }},
	{FieldPrice, kindNumeric,
		func(r *domain.Record) any { return r.Price },
		func(d, s *domain.Record) { d.Price = s.Price }},
	{FieldPriceIncludingTax, kindNumeric,
		func(r *domain.Record) any { return derefFloat(r.PriceIncludingTax) },
		func(d, s *domain.Record) { d.PriceIncludingTax = s.PriceIncludingTax }},
	{FieldPriceExcludingTax, kindNumeric,
		func(r *domain.Record) any { return derefFloat(r.PriceExcludingTax) },
		func(d, s *domain.Record) { d.PriceExcludingTax = s.PriceExcludingTax }},
	{FieldInStock, kindBool,
		func(r *domain.Record) any { return r.InStock },
		func(d, s *domain.Record) { d.InStock = s.InStock }},
	{FieldRating, kindNumeric,
		func(r *domain.Record) any { return r.Rating },
		func(d, s *domain.Record) { d.Rating = s.Rating }},
	{FieldReviewsCount, kindText,
		func(r *domain.Record) any { return r.ReviewsCount },
		func(d, s *domain.Record) { d.ReviewsCount = s.ReviewsCount }},
	{FieldCoverImage, kindText,
		func(r *domain.Record) any { return derefString(r.CoverImageURL) },
		func(d, s *domain.Record) { d.CoverImageURL = s.CoverImageURL }},
}

// ImportantFields get their own change log entry in addition to the aggregate one.
var ImportantFields = map[string]bool{
	FieldPrice:             true,
	FieldInStock:           true,
	FieldPriceIncludingTax: true,
}

// MonitoredFields returns the monitored field names in report order.
func MonitoredFields() []string {
	names := make([]string, len(monitored))
	for i, f := range monitored {
		names[i] = f.name
	}
	return names
}

// FieldChange holds the stored and candidate values of one changed field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff maps a changed field name to its old and new values.
type Diff map[string]FieldChange

// Empty reports whether no monitored field changed.
func (d Diff) Empty() bool {
	return len(d) == 0
}

// Fields returns the changed field names sorted alphabetically.
func (d Diff) Fields() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JSONB renders the diff for the aggregate change log entry.
func (d Diff) JSONB() domain.JSONBMap {
	out := make(domain.JSONBMap, len(d))
	for name, c := range d {
		out[name] = map[string]any{"old": c.Old, "new": c.New}
	}
	return out
}

// Detect compares a stored record against a freshly extracted candidate.
//
// Numeric fields differ only when both sides are present and further apart than
// NumericTolerance. The stock flag is compared by value. Everything else is
// compared as trimmed text with absent values treated as empty.
func Detect(stored, candidate *domain.Record) Diff {
	diff := Diff{}
	for _, f := range monitored {
		oldVal, newVal := f.get(stored), f.get(candidate)
		if changed(f.kind, oldVal, newVal) {
			diff[f.name] = FieldChange{Old: oldVal, New: newVal}
		}
	}
	return diff
}

// Apply copies the changed fields from candidate onto stored.
func Apply(stored, candidate *domain.Record, diff Diff) {
	for _, f := range monitored {
		if _, ok := diff[f.name]; ok {
			f.apply(stored, candidate)
		}
	}
}

func changed(kind fieldKind, oldVal, newVal any) bool {
	switch kind {
	case kindNumeric:
		o, oOK := oldVal.(float64)
		n, nOK := newVal.(float64)
		if !oOK || !nOK {
			return false
		}
		return math.Abs(o-n) > NumericTolerance
	case kindBool:
		o, _ := oldVal.(bool)
		n, _ := newVal.(bool)
		return o != n
	default:
		return strings.TrimSpace(FormatValue(oldVal)) != strings.TrimSpace(FormatValue(newVal))
	}
}

// FormatValue renders a field value for comparison and change descriptions.
// nil renders as the empty string.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}

// HumanizeField turns "price_including_tax" into "Price Including Tax".
func HumanizeField(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func derefFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func derefString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
