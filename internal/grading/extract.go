package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errEmptyAnswer      = errors.New("empty answer")
	errAmbiguous        = errors.New("expected exactly one value")
	errMissingKey       = errors.New("no recognised answer key")
	errUnsupportedShape = errors.New("unsupported answer shape")
)

// Keys looked up when an answer or answer key is a JSON object.
var (
	scalarKeys    = []string{"answer", "selected", "correct"}
	selectedKeys  = []string{"selected"}
	correctSetKey = []string{"correct"}
)

// ExtractScalar pulls a single value out of a raw answer. Accepted shapes are
// a one element JSON array, a JSON object holding one of keys, a JSON string
// literal and bare text. A string literal whose content is itself a JSON array
// or object is unwrapped once.
func ExtractScalar(raw string, keys ...string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errEmptyAnswer
	}
	if s, ok := unwrapStringLiteral(raw); ok {
		if s == "" {
			return "", errEmptyAnswer
		}
		if !isJSONContainer(s) {
			return s, nil
		}
		raw = s
	}
	switch raw[0] {
	case '[':
		var items []interface{}
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return "", err
		}
		return singleValue(items)
	case '{':
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return "", err
		}
		for _, k := range keys {
			v, ok := obj[k]
			if !ok {
				continue
			}
			if items, isList := v.([]interface{}); isList {
				return singleValue(items)
			}
			return stringify(v)
		}
		return "", errMissingKey
	case '"':
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return raw, nil
}

// ExtractSet pulls a list of values out of a JSON array or out of the array
// stored under one of keys in a JSON object, either of them possibly sent as
// a JSON string.
func ExtractSet(raw string, keys ...string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errEmptyAnswer
	}
	if s, ok := unwrapStringLiteral(raw); ok {
		if s == "" {
			return nil, errEmptyAnswer
		}
		raw = s
	}
	var items []interface{}
	switch raw[0] {
	case '[':
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, err
		}
	case '{':
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return nil, err
		}
		found := false
		for _, k := range keys {
			v, ok := obj[k]
			if !ok {
				continue
			}
			list, isList := v.([]interface{})
			if !isList {
				return nil, fmt.Errorf("%q is not a list: %w", k, errUnsupportedShape)
			}
			items, found = list, true
			break
		}
		if !found {
			return nil, errMissingKey
		}
	default:
		return nil, errUnsupportedShape
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		s, err := stringify(it)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// unwrapStringLiteral decodes raw when it is a JSON string literal, e.g. a
// client that sends "userAnswer":"[\"a\"]".
func unwrapStringLiteral(raw string) (string, bool) {
	if len(raw) < 2 || raw[0] != '"' {
		return raw, false
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return raw, false
	}
	return strings.TrimSpace(s), true
}

// UnwrapAnswer returns the content of a JSON string literal when the bare
// content reads back through the extractors the same way; any other raw
// value is returned unchanged.
func UnwrapAnswer(raw string) string {
	s, ok := unwrapStringLiteral(strings.TrimSpace(raw))
	if !ok || s == "" {
		return raw
	}
	switch s[0] {
	case '"':
		return raw
	case '[', '{':
		if !json.Valid([]byte(s)) {
			return raw
		}
	}
	return s
}

func isJSONContainer(s string) bool {
	return (s[0] == '[' || s[0] == '{') && json.Valid([]byte(s))
}

func singleValue(items []interface{}) (string, error) {
	if len(items) != 1 {
		return "", errAmbiguous
	}
	return stringify(items[0])
}

func stringify(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case nil:
		return "", errEmptyAnswer
	}
	return "", errUnsupportedShape
}

// normalize trims and lower-cases a value for comparison.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalize(v)] = struct{}{}
	}
	return set
}
