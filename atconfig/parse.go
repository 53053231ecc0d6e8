package atconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/tidwall/jsonc"
	"gopkg.in/ghodss/yaml.v1"
)

// Format is the syntax of a configuration document.
type Format int

const (
	// FormatJSON accepts plain JSON and JSON with comments and trailing commas.
	FormatJSON Format = iota
	// FormatYAML accepts YAML.
	FormatYAML
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse reads a flat configuration object.
func Parse(data []byte, format Format) (Map, error) {
	var err error
	if format == FormatYAML {
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return nil, fmt.Errorf("parsing YAML configuration: %w", err)
		}
	} else {
		data = jsonc.ToJSON(data)
	}
	var doc ldvalue.Value
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if doc.Type() != ldvalue.ObjectType {
		return nil, fmt.Errorf("configuration must be an object, not %s", doc.Type())
	}
	ret := make(Map, doc.Count())
	for _, key := range doc.Keys(nil) {
		value := doc.GetByKey(key)
		switch value.Type() {
		case ldvalue.StringType:
			ret[key] = value.StringValue()
		case ldvalue.NullType:
		default:
			ret[key] = value.JSONString()
		}
	}
	return ret, nil
}
