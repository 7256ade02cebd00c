package predictor

import "sort"

// Encoder is a bidirectional category-to-index table. It is built once
// from training data and never modified afterwards.
type Encoder struct {
	column string
	values []string
	index  map[string]int
}

// NewEncoder builds an encoder over the distinct values, indexed in sorted
// order.
func NewEncoder(column string, values []string) *Encoder {
	seen := make(map[string]struct{}, len(values))
	var distinct []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)

	index := make(map[string]int, len(distinct))
	for i, v := range distinct {
		index[v] = i
	}
	return &Encoder{column: column, values: distinct, index: index}
}

// Column returns the feature name the encoder serves.
func (e *Encoder) Column() string {
	return e.column
}

// Encode maps a category to its index.
func (e *Encoder) Encode(value string) (int, error) {
	i, ok := e.index[value]
	if !ok {
		return 0, &UnknownCategoryError{Column: e.column, Value: value}
	}
	return i, nil
}

// Decode maps an index back to its category.
func (e *Encoder) Decode(i int) (string, bool) {
	if i < 0 || i >= len(e.values) {
		return "", false
	}
	return e.values[i], true
}

// Values returns the vocabulary in index order.
func (e *Encoder) Values() []string {
	return append([]string(nil), e.values...)
}

// Len returns the vocabulary size.
func (e *Encoder) Len() int {
	return len(e.values)
}
