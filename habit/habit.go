// Package habit is the repository layer for habit records kept in an
// untyped key-value store. The index key lists member ids; each id is a key
// holding one strictly shaped JSON habit.
package habit

// IndexKey is the store key holding the JSON array of habit ids.
const IndexKey = "habit-ids"

// Habit is a validated habit record.
type Habit struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// Schema is the strict shape a stored habit must match: exactly id, name and
// createdAt, all strings. createdAt is free text; Add writes RFC 3339 but
// records from other writers may use any ISO-8601 form.
var Schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":        map[string]any{"type": "string", "minLength": 1},
		"name":      map[string]any{"type": "string"},
		"createdAt": map[string]any{"type": "string"},
	},
	"required":             []any{"id", "name", "createdAt"},
	"additionalProperties": false,
}

// IndexSchema is the shape of the index value. An explicit JSON null is
// accepted and means "no habits".
var IndexSchema = map[string]any{
	"type":  []any{"array", "null"},
	"items": map[string]any{"type": "string", "minLength": 1},
}
