package association

import "fmt"

// Issue is one validation message routed by association key.
type Issue struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Result aggregates the validation of a selection map against all rules
// for an entity. It is recomputed on every selection change and never
// persisted.
type Result struct {
	IsValid  bool    `json:"isValid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// SelectionCount derives the selection count from a raw selection value:
// nil counts as zero, a slice counts its elements, anything else counts
// as one.
func SelectionCount(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case []any:
		return len(v)
	case []string:
		return len(v)
	default:
		return 1
	}
}

// Validate evaluates the current selections against all rules. The
// required check and the min check are evaluated independently and may
// both fire for the same rule; that duplication is intentional — callers
// may rely on both messages being present. The function is pure and
// idempotent.
func Validate(rules []Rule, selections map[string]any) Result {
	res := Result{IsValid: true}

	for _, rule := range rules {
		key := rule.Key()
		count := SelectionCount(selections[key])

		if rule.IsRequired && count == 0 {
			res.Errors = append(res.Errors, Issue{
				Key:     key,
				Message: fmt.Sprintf("selection required for %s", rule.TargetItemTypeCode),
			})
		}
		// Min is only checked once the slot is partially populated; the
		// empty case is the required check's concern.
		if rule.Cardinality.Min != nil && count > 0 && count < *rule.Cardinality.Min {
			res.Errors = append(res.Errors, Issue{
				Key:     key,
				Message: fmt.Sprintf("minimum %d required", *rule.Cardinality.Min),
			})
		}
		if max := rule.EffectiveMax(); max != nil && count > *max {
			res.Errors = append(res.Errors, Issue{
				Key:     key,
				Message: fmt.Sprintf("maximum %d exceeded", *max),
			})
		}
	}

	res.IsValid = len(res.Errors) == 0
	return res
}
