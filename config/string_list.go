package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StringList is a list setting that also accepts a single string, which is
// how older config files declared BUILD_DATA_CMD. Blank entries are dropped.
type StringList []string

func (l *StringList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var many []string
	if err := unmarshal(&many); err == nil {
		*l = compact(many)
		return nil
	}
	var one string
	if err := unmarshal(&one); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	*l = compact([]string{one})
	return nil
}

func (l *StringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = compact(many)
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	*l = compact([]string{one})
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler.
func (l *StringList) UnmarshalTOML(v interface{}) error {
	switch val := v.(type) {
	case string:
		*l = compact([]string{val})
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected a list of strings, got %T", item)
			}
			items = append(items, s)
		}
		*l = compact(items)
	default:
		return fmt.Errorf("expected a string or a list of strings, got %T", v)
	}
	return nil
}

func compact(in []string) StringList {
	out := StringList{}
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
