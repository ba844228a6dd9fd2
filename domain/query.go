package domain

// Direction orders a result set by a member.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Query describes one analytical query against the semantic layer: which
// measures to aggregate, which dimensions and segments to group or restrict
// by, time windows, filters, ordering, and pagination.
//
// Measures, Dimensions, and Segments are sets: duplicates carry no meaning
// and are removed (first occurrence wins) when the query is encoded.
// TimeDimensions and Filters preserve caller order. A Query is never mutated
// by the executor and is safe to share across concurrent executions.
type Query struct {
	Measures       []string             `json:"measures,omitempty"`
	Dimensions     []string             `json:"dimensions,omitempty"`
	Segments       []string             `json:"segments,omitempty"`
	TimeDimensions []TimeDimension      `json:"timeDimensions,omitempty"`
	Filters        FilterList           `json:"filters,omitempty"`
	Order          map[string]Direction `json:"order,omitempty"`
	Limit          *int                 `json:"limit,omitempty"`
	Offset         *int                 `json:"offset,omitempty"`
}

// Validate checks all structural invariants. It reports the first violation
// as a *ValidationError naming the offending field; a nil error means the
// query may be sent as-is.
func (q *Query) Validate() error {
	if len(q.Measures) == 0 && len(q.Dimensions) == 0 {
		return ErrValidation("query: at least one measure or dimension is required")
	}
	for _, m := range q.Measures {
		if m == "" {
			return ErrValidation("query: measures must not contain empty names")
		}
	}
	for _, d := range q.Dimensions {
		if d == "" {
			return ErrValidation("query: dimensions must not contain empty names")
		}
	}
	for _, s := range q.Segments {
		if s == "" {
			return ErrValidation("query: segments must not contain empty names")
		}
	}
	for _, td := range q.TimeDimensions {
		if err := td.Validate(); err != nil {
			return err
		}
	}
	for i, f := range q.Filters {
		if f == nil {
			return ErrValidation("query: filters[%d] is nil", i)
		}
		if err := f.validateFilterItem(); err != nil {
			return err
		}
	}
	for member, dir := range q.Order {
		if member == "" {
			return ErrValidation("query: order keys must be member names")
		}
		if dir != Asc && dir != Desc {
			return ErrValidation("query: order[%s] must be %q or %q, got %q", member, Asc, Desc, dir)
		}
	}
	if q.Limit != nil && *q.Limit < 0 {
		return ErrValidation("query: limit must be >= 0, got %d", *q.Limit)
	}
	if q.Offset != nil && *q.Offset < 0 {
		return ErrValidation("query: offset must be >= 0, got %d", *q.Offset)
	}
	return nil
}

// Dedup returns a copy of q with duplicate measures, dimensions, and
// segments removed, preserving first-occurrence order. The receiver is not
// modified.
func (q *Query) Dedup() *Query {
	out := *q
	out.Measures = dedup(q.Measures)
	out.Dimensions = dedup(q.Dimensions)
	out.Segments = dedup(q.Segments)
	return &out
}

func dedup(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
