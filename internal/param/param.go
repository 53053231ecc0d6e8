// Package param describes a single hit query parameter: its key, its lazily-evaluated value,
// and the options that control how the builder places and renders it.
package param

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Type is the kind of Go value a Param was created from.
type Type int

const (
	// Unknown is used for values that are rendered with fmt.Sprint.
	Unknown Type = iota
	// Int is any signed or unsigned integer.
	Int
	// Double is a float64.
	Double
	// Float is a float32.
	Float
	// String is a plain string.
	String
	// Bool is a boolean, rendered as "true" or "false".
	Bool
	// Array is a list of values joined with the param's separator.
	Array
	// JSON is a value serialized as JSON at build time.
	JSON
	// Closure is a caller-supplied Value evaluated at build time.
	Closure
)

// String returns a readable name for the type.
func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Double:
		return "double"
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case JSON:
		return "json"
	case Closure:
		return "closure"
	default:
		return "unknown"
	}
}

// Value is a deferred parameter value. Evaluate is called by the builder when the hit is
// serialized, not when the parameter is set, so that values such as timestamps reflect the
// state at build time.
type Value interface {
	Evaluate() (string, error)
}

// ValueFunc adapts an ordinary function to the Value interface.
type ValueFunc func() string

// Evaluate calls f.
func (f ValueFunc) Evaluate() (string, error) {
	return f(), nil
}

type staticValue string

func (v staticValue) Evaluate() (string, error) { return string(v), nil }

// Static returns a Value that always evaluates to s.
func Static(s string) Value {
	return staticValue(s)
}

// ArrayValue is a list of items joined with a separator at build time.
type ArrayValue struct {
	Items     []string
	Separator string
}

// Evaluate joins the items with the separator, or DefaultSeparator if none was given.
func (a ArrayValue) Evaluate() (string, error) {
	sep := a.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.Join(a.Items, sep), nil
}

// JSONValue is any value that is marshalled as JSON at build time.
type JSONValue struct {
	Data interface{}
}

// Evaluate marshals the data. A nil value becomes an empty object.
func (j JSONValue) Evaluate() (string, error) {
	if j.Data == nil {
		return "{}", nil
	}
	if s, ok := j.Data.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(j.Data)
	if err != nil {
		return "", fmt.Errorf("value is not JSON-serializable: %w", err)
	}
	return string(data), nil
}

// AsJSON wraps data so that New treats it as a JSON parameter.
func AsJSON(data interface{}) JSONValue {
	return JSONValue{Data: data}
}

// Param is one hit query parameter.
type Param struct {
	Key     string
	Value   Value
	Type    Type
	Options Options
}

// New creates a Param, inferring its Type from the Go value.
//
// Slices become arrays joined with the option separator, maps and JSONValue become JSON, and
// Value or func() string become closures. Anything else is rendered with fmt.Sprint.
func New(key string, value interface{}, options Options) Param {
	options = options.normalized()
	p := Param{Key: key, Options: options}
	switch v := value.(type) {
	case nil:
		p.Type, p.Value = String, Static("")
	case string:
		p.Type, p.Value = String, Static(v)
	case bool:
		p.Type, p.Value = Bool, Static(strconv.FormatBool(v))
	case int:
		p.Type, p.Value = Int, Static(strconv.Itoa(v))
	case int32:
		p.Type, p.Value = Int, Static(strconv.FormatInt(int64(v), 10))
	case int64:
		p.Type, p.Value = Int, Static(strconv.FormatInt(v, 10))
	case uint:
		p.Type, p.Value = Int, Static(strconv.FormatUint(uint64(v), 10))
	case uint64:
		p.Type, p.Value = Int, Static(strconv.FormatUint(v, 10))
	case float64:
		p.Type, p.Value = Double, Static(strconv.FormatFloat(v, 'f', -1, 64))
	case float32:
		p.Type, p.Value = Float, Static(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case []string:
		p.Type, p.Value = Array, ArrayValue{Items: v, Separator: options.Separator}
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		p.Type, p.Value = Array, ArrayValue{Items: items, Separator: options.Separator}
	case map[string]interface{}:
		p.Type, p.Value = JSON, JSONValue{Data: v}
	case JSONValue:
		p.Type, p.Value = JSON, v
	case func() string:
		p.Type, p.Value = Closure, ValueFunc(v)
	case Value:
		p.Type, p.Value = Closure, v
	default:
		p.Type, p.Value = Unknown, Static(fmt.Sprint(v))
	}
	return p
}

// Evaluate computes the param's value. A param without a Value evaluates to an empty string.
func (p Param) Evaluate() (string, error) {
	if p.Value == nil {
		return "", nil
	}
	return p.Value.Evaluate()
}
