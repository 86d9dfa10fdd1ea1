// Package schema decodes raw JSON text and validates it against a JSON
// Schema (draft-07 subset), reporting every violation found. It is a
// general validator; the keyword list on Validate is the supported surface,
// not just what the habit schemas use.
package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
)

// Decode parses raw as JSON and validates the result against schema.
// Malformed JSON, duplicate object members and invalid UTF-8 are reported as
// a violation at the root path.
func Decode(raw string, schema map[string]any) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, &ValidationError{Violations: []Violation{
			{Path: "$", Message: fmt.Sprintf("malformed JSON: %v", err)},
		}}
	}
	if err := Validate(schema, value); err != nil {
		return nil, err
	}
	return value, nil
}

// Validate checks a decoded value against a JSON Schema.
// Returns nil if validation passes or the schema is nil, otherwise a
// *ValidationError listing every violation.
//
// Supported JSON Schema keywords:
//   - type (a name or a list of names: string, number, integer, boolean, object, array, null)
//   - properties, required, additionalProperties
//   - items (for arrays)
//   - minimum, maximum, exclusiveMinimum, exclusiveMaximum
//   - minLength, maxLength, format (date-time)
//   - minItems, maxItems
//   - enum
func Validate(schema map[string]any, value any) error {
	if schema == nil {
		return nil
	}
	var c collector
	c.validateValue(schema, value, "$")
	if len(c.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: c.violations}
}

type collector struct {
	violations []Violation
}

func (c *collector) add(path, format string, args ...any) {
	c.violations = append(c.violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) validateValue(schema map[string]any, value any, path string) {
	// A type mismatch makes the remaining keywords meaningless for this value.
	if t, ok := schema["type"]; ok {
		if !c.checkType(t, value, path) {
			return
		}
	}

	if enumRaw, ok := schema["enum"]; ok {
		if enumList, ok := enumRaw.([]any); ok {
			c.checkEnum(enumList, value, path)
		}
	}

	switch v := value.(type) {
	case map[string]any:
		c.validateObject(schema, v, path)
	case []any:
		c.validateArray(schema, v, path)
	case string:
		c.validateString(schema, v, path)
	case float64:
		c.validateNumber(schema, v, path)
	}
}

func (c *collector) checkType(t any, value any, path string) bool {
	var expected []string
	switch tt := t.(type) {
	case string:
		expected = []string{tt}
	case []string:
		expected = tt
	case []any:
		for _, e := range tt {
			if s, ok := e.(string); ok {
				expected = append(expected, s)
			}
		}
	default:
		return true
	}
	for _, e := range expected {
		if typeMatches(e, value) {
			return true
		}
	}
	quoted := make([]string, len(expected))
	for i, e := range expected {
		quoted[i] = fmt.Sprintf("%q", e)
	}
	c.add(path, "expected type %s, got %q", strings.Join(quoted, " or "), jsonType(value))
	return false
}

func typeMatches(expected string, value any) bool {
	actual := jsonType(value)
	switch expected {
	case "integer":
		// Accept float64 values that are whole numbers
		if f, ok := value.(float64); ok {
			return f == float64(int64(f))
		}
		return actual == "integer"
	case "number":
		return actual == "number" || actual == "integer"
	}
	return actual == expected
}

func jsonType(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case int, int64:
		return "integer"
	default:
		return reflect.TypeOf(v).String()
	}
}

func (c *collector) checkEnum(allowed []any, value any, path string) {
	for _, a := range allowed {
		if reflect.DeepEqual(a, value) {
			return
		}
	}
	c.add(path, "value not in enum %v", allowed)
}

func (c *collector) validateObject(schema map[string]any, obj map[string]any, path string) {
	if req, ok := schema["required"]; ok {
		for _, field := range stringList(req) {
			if _, exists := obj[field]; !exists {
				c.add(path+"."+field, "missing required field")
			}
		}
	}

	propsMap, _ := schema["properties"].(map[string]any)
	fields := make([]string, 0, len(propsMap))
	for field := range propsMap {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		val, exists := obj[field]
		if !exists {
			continue
		}
		ps, ok := propsMap[field].(map[string]any)
		if !ok {
			continue
		}
		c.validateValue(ps, val, path+"."+field)
	}

	if ap, ok := schema["additionalProperties"]; ok {
		if apBool, ok := ap.(bool); ok && !apBool {
			var extra []string
			for field := range obj {
				if _, defined := propsMap[field]; !defined {
					extra = append(extra, field)
				}
			}
			sort.Strings(extra)
			for _, field := range extra {
				c.add(path+"."+field, "additional property not allowed")
			}
		}
	}
}

func (c *collector) validateArray(schema map[string]any, arr []any, path string) {
	if v, ok := toFloat(schema["minItems"]); ok && float64(len(arr)) < v {
		c.add(path, "array length %d is less than minItems %v", len(arr), v)
	}
	if v, ok := toFloat(schema["maxItems"]); ok && float64(len(arr)) > v {
		c.add(path, "array length %d is greater than maxItems %v", len(arr), v)
	}
	if itemSchema, ok := schema["items"].(map[string]any); ok {
		for i, elem := range arr {
			c.validateValue(itemSchema, elem, fmt.Sprintf("%s[%d]", path, i))
		}
	}
}

func (c *collector) validateString(schema map[string]any, s string, path string) {
	if v, ok := toFloat(schema["minLength"]); ok && float64(len(s)) < v {
		c.add(path, "string length %d is less than minLength %v", len(s), v)
	}
	if v, ok := toFloat(schema["maxLength"]); ok && float64(len(s)) > v {
		c.add(path, "string length %d is greater than maxLength %v", len(s), v)
	}
	if f, ok := schema["format"].(string); ok && f == "date-time" {
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			c.add(path, "%q is not an RFC 3339 date-time", s)
		}
	}
}

func (c *collector) validateNumber(schema map[string]any, n float64, path string) {
	if v, ok := toFloat(schema["minimum"]); ok && n < v {
		c.add(path, "%v is less than minimum %v", n, v)
	}
	if v, ok := toFloat(schema["maximum"]); ok && n > v {
		c.add(path, "%v is greater than maximum %v", n, v)
	}
	if v, ok := toFloat(schema["exclusiveMinimum"]); ok && n <= v {
		c.add(path, "%v is not greater than exclusiveMinimum %v", n, v)
	}
	if v, ok := toFloat(schema["exclusiveMaximum"]); ok && n >= v {
		c.add(path, "%v is not less than exclusiveMaximum %v", n, v)
	}
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
