package habit

import (
	"github.com/stevemurr/habit-store/schema"
	"github.com/stevemurr/habit-store/store"
)

// DecodeIndex turns the raw index value into a list of ids. An absent index
// is a valid, empty collection; any other shape than a list of non-empty
// strings (or null) is a *schema.ValidationError.
func DecodeIndex(v store.Value) ([]string, error) {
	raw, ok := v.Raw()
	if !ok {
		return []string{}, nil
	}
	decoded, err := schema.Decode(raw, IndexSchema)
	if err != nil {
		return nil, err
	}
	items, _ := decoded.([]any)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, _ := item.(string)
		ids = append(ids, id)
	}
	return ids, nil
}

// DecodeHabit turns a raw member value into a Habit. Unlike DecodeIndex,
// absence is an error here: a listed id with nothing behind it means the
// index and the store disagree.
func DecodeHabit(v store.Value) (Habit, error) {
	raw, ok := v.Raw()
	if !ok {
		return Habit{}, &schema.ValidationError{Violations: []schema.Violation{
			{Path: "$", Message: `expected type "object", got absent value`},
		}}
	}
	decoded, err := schema.Decode(raw, Schema)
	if err != nil {
		return Habit{}, err
	}
	obj, _ := decoded.(map[string]any)
	h := Habit{}
	h.ID, _ = obj["id"].(string)
	h.Name, _ = obj["name"].(string)
	h.CreatedAt, _ = obj["createdAt"].(string)
	return h, nil
}
