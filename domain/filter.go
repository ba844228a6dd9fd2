package domain

import (
	"encoding/json"
	"fmt"
)

// Operator is a filter comparison operator.
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "notEquals"
	OpContains       Operator = "contains"
	OpNotContains    Operator = "notContains"
	OpStartsWith     Operator = "startsWith"
	OpEndsWith       Operator = "endsWith"
	OpGt             Operator = "gt"
	OpGte            Operator = "gte"
	OpLt             Operator = "lt"
	OpLte            Operator = "lte"
	OpSet            Operator = "set"
	OpNotSet         Operator = "notSet"
	OpInDateRange    Operator = "inDateRange"
	OpNotInDateRange Operator = "notInDateRange"
	OpBeforeDate     Operator = "beforeDate"
	OpAfterDate      Operator = "afterDate"
)

// operatorArity maps each operator to (min, max) allowed value counts.
// max = -1 means unbounded.
var operatorArity = map[Operator][2]int{
	OpEquals:         {1, -1},
	OpNotEquals:      {1, -1},
	OpContains:       {1, -1},
	OpNotContains:    {1, -1},
	OpStartsWith:     {1, -1},
	OpEndsWith:       {1, -1},
	OpGt:             {1, 1},
	OpGte:            {1, 1},
	OpLt:             {1, 1},
	OpLte:            {1, 1},
	OpSet:            {0, 0},
	OpNotSet:         {0, 0},
	OpInDateRange:    {2, 2},
	OpNotInDateRange: {2, 2},
	OpBeforeDate:     {1, 1},
	OpAfterDate:      {1, 1},
}

// FilterItem is either a leaf Filter or a boolean FilterGroup.
type FilterItem interface {
	validateFilterItem() error
}

// Filter is a single member/operator/values condition.
type Filter struct {
	Member   string   `json:"member"`
	Operator Operator `json:"operator"`
	Values   []string `json:"values,omitempty"`
}

// Validate checks the filter is well-formed and the value count matches the
// operator's arity.
func (f Filter) Validate() error { return f.validateFilterItem() }

func (f Filter) validateFilterItem() error {
	if f.Member == "" {
		return ErrValidation("filter: member is required")
	}
	arity, ok := operatorArity[f.Operator]
	if !ok {
		return ErrValidation("filter %s: unknown operator %q", f.Member, f.Operator)
	}
	if len(f.Values) < arity[0] {
		return ErrValidation("filter %s: operator %q requires at least %d value(s), got %d",
			f.Member, f.Operator, arity[0], len(f.Values))
	}
	if arity[1] >= 0 && len(f.Values) > arity[1] {
		return ErrValidation("filter %s: operator %q takes at most %d value(s), got %d",
			f.Member, f.Operator, arity[1], len(f.Values))
	}
	return nil
}

// FilterGroup combines filter items with a boolean connective. Exactly one of
// Or and And must be set.
type FilterGroup struct {
	Or  FilterList
	And FilterList
}

// Validate checks the group is well-formed.
func (g FilterGroup) Validate() error { return g.validateFilterItem() }

func (g FilterGroup) validateFilterItem() error {
	if (len(g.Or) == 0) == (len(g.And) == 0) {
		return ErrValidation("filter group: exactly one of 'or' and 'and' must be non-empty")
	}
	for _, item := range g.members() {
		if err := item.validateFilterItem(); err != nil {
			return err
		}
	}
	return nil
}

func (g FilterGroup) members() FilterList {
	if len(g.Or) > 0 {
		return g.Or
	}
	return g.And
}

// MarshalJSON serializes the group as {"or": [...]} or {"and": [...]}.
func (g FilterGroup) MarshalJSON() ([]byte, error) {
	if len(g.Or) > 0 {
		return json.Marshal(map[string]FilterList{"or": g.Or})
	}
	return json.Marshal(map[string]FilterList{"and": g.And})
}

// UnmarshalJSON accepts {"or": [...]} or {"and": [...]}.
func (g *FilterGroup) UnmarshalJSON(data []byte) error {
	var raw struct {
		Or  FilterList `json:"or"`
		And FilterList `json:"and"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = FilterGroup{Or: raw.Or, And: raw.And}
	return nil
}

// FilterList is an ordered sequence of filter items. It exists so the
// heterogeneous leaf/group mix can round-trip through JSON.
type FilterList []FilterItem

// UnmarshalJSON decodes each element as a group when it carries an "or" or
// "and" key, and as a leaf filter otherwise.
func (l *FilterList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(FilterList, 0, len(raws))
	for i, raw := range raws {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return fmt.Errorf("filters[%d]: %w", i, err)
		}
		_, hasOr := probe["or"]
		_, hasAnd := probe["and"]
		if hasOr || hasAnd {
			var g FilterGroup
			if err := json.Unmarshal(raw, &g); err != nil {
				return fmt.Errorf("filters[%d]: %w", i, err)
			}
			out = append(out, g)
			continue
		}
		var f Filter
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("filters[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	*l = out
	return nil
}
