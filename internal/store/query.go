package store

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// queryPlan is the engine-independent description of a composed query.
type queryPlan struct {
	filters    []filter
	orderField string
	orderDir   Direction
	limit      int
	offset     int
}

type filter struct {
	field string
	op    Operator
	value any
}

type decodedDoc struct {
	doc    Document
	fields map[string]any
}

// decodeFields unmarshals a document body keeping numbers exact
// (json.Number, not float64), so price filters compare without binary
// rounding.
func decodeFields(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// evaluate applies filters, ordering and pagination to the decoded
// collection contents. Offsets past the result count yield an empty set.
func evaluate(docs []decodedDoc, plan queryPlan) []Document {
	matched := docs[:0:0]
	for _, d := range docs {
		if matchAll(d.fields, plan.filters) {
			matched = append(matched, d)
		}
	}

	if plan.orderField != "" {
		sortDocs(matched, plan.orderField, plan.orderDir)
	}

	result := make([]Document, 0, len(matched))
	for _, d := range matched {
		result = append(result, d.doc)
	}

	return paginate(result, plan.offset, plan.limit)
}

func matchAll(fields map[string]any, filters []filter) bool {
	for _, f := range filters {
		if !match(fields, f) {
			return false
		}
	}
	return true
}

func match(fields map[string]any, f filter) bool {
	v, ok := fields[f.field]
	if !ok || v == nil {
		return false
	}

	if f.op == OpArrayContains {
		arr, ok := v.([]any)
		if !ok {
			return false
		}
		for _, el := range arr {
			if equalValues(el, f.value) {
				return true
			}
		}
		return false
	}

	cmp, ok := compareValues(v, f.value)
	if !ok {
		return false
	}

	switch f.op {
	case OpEqual:
		return cmp == 0
	case OpGreater:
		return cmp > 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLess:
		return cmp < 0
	case OpLessOrEqual:
		return cmp <= 0
	default:
		return false
	}
}

func equalValues(a, b any) bool {
	cmp, ok := compareValues(a, b)
	return ok && cmp == 0
}

// compareValues compares a stored field value against a query value. When the
// query value is numeric the stored value is compared as an exact decimal
// (decimal amounts marshal as JSON strings, timestamps as numbers; both
// sides go through the same conversion). Otherwise strings compare
// lexically and booleans by equality.
func compareValues(docVal, queryVal any) (int, bool) {
	if qd, ok := toDecimal(queryVal); ok && isNumeric(queryVal) {
		dd, ok := toDecimal(docVal)
		if !ok {
			return 0, false
		}
		return dd.Cmp(qd), true
	}

	switch q := queryVal.(type) {
	case string:
		d, ok := docVal.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(d, q), true
	case bool:
		d, ok := docVal.(bool)
		if !ok {
			return 0, false
		}
		if d == q {
			return 0, true
		}
		return 1, true
	}

	return 0, false
}

// isNumeric reports whether a query value should force decimal comparison.
func isNumeric(v any) bool {
	switch v.(type) {
	case decimal.Decimal, json.Number, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	}
	return decimal.Zero, false
}

// sortDocs orders by a single field. Values that both parse as decimals
// compare numerically, otherwise lexically; documents missing the field sort
// last regardless of direction.
func sortDocs(docs []decodedDoc, field string, dir Direction) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].fields[field]
		b, bok := docs[j].fields[field]

		if !aok || a == nil {
			return false
		}
		if !bok || b == nil {
			return true
		}

		cmp := compareSortValues(a, b)
		if dir == Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareSortValues(a, b any) int {
	ad, aok := toDecimal(a)
	bd, bok := toDecimal(b)
	if aok && bok {
		return ad.Cmp(bd)
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}

	return 0
}

func paginate(docs []Document, offset, limit int) []Document {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []Document{}
	}
	docs = docs[offset:]

	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
