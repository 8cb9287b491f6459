package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trackline/jobsonar/internal/domain"
)

// Parser converts one raw upstream record into a canonical job. On any
// internal failure it returns a zero Job; callers treat that as "skip
// this record", never as fatal.
type Parser interface {
	Parse(raw map[string]any) domain.Job
}

// Func adapts a plain function to the Parser interface.
type Func func(raw map[string]any) domain.Job

func (f Func) Parse(raw map[string]any) domain.Job {
	return f(raw)
}

// ForFormat returns the parser for a named API response format.
// Supported formats: greenhouse, comeet, jibe, eightfold, workday,
// ashby, phenom.
func ForFormat(format string) (Parser, error) {
	switch format {
	case "greenhouse":
		return Func(ParseGreenhouse), nil
	case "comeet":
		return Func(ParseComeet), nil
	case "jibe":
		return Func(ParseJibe), nil
	case "eightfold":
		return Func(ParseEightfold), nil
	case "workday":
		return Func(ParseWorkday), nil
	case "ashby":
		return Func(ParseAshby), nil
	case "phenom":
		return Func(ParsePhenom), nil
	default:
		return nil, fmt.Errorf("unknown parser format %q", format)
	}
}

// DetectFormat guesses the response format for API scrapers that do not
// name one, by probing for format-specific keys in a sample record.
func DetectFormat(sample map[string]any) string {
	if _, ok := sample["absolute_url"]; ok {
		return "greenhouse"
	}
	if _, ok := sample["url_active_page"]; ok {
		return "comeet"
	}
	if _, ok := sample["apply_url"]; ok {
		return "jibe"
	}
	if _, ok := sample["externalPath"]; ok {
		return "workday"
	}
	if _, ok := sample["positionUrl"]; ok {
		return "eightfold"
	}
	return "greenhouse"
}

// str extracts a string value, converting numbers so numeric IDs can be
// used as external IDs.
func str(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

// nested walks a dot-separated path through nested maps.
func nested(raw map[string]any, path string) any {
	cur := any(raw)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// nestedStr is nested with string conversion.
func nestedStr(raw map[string]any, path string) string {
	switch v := nested(raw, path).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// firstListString returns the first string out of a list value, for
// fields like Workday's locationsText fallback lists.
func firstListString(v any) string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	s, _ := list[0].(string)
	return s
}

// joinListStrings joins the string members of a list value.
func joinListStrings(v any, sep string) string {
	list, ok := v.([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}
