package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/trackline/jobsonar/internal/domain"
)

// FieldMapParser maps arbitrary flat-JSON upstream records to canonical
// jobs through a declarative field mapping. One implementation serves
// every structurally-similar-but-differently-named API, so a new
// integration is a configuration change rather than a new parser.
//
// Each target field binds to one of:
//   - a source field name: "title": "jobTitle"
//   - an ordered fallback list (first non-empty wins):
//     "location": ["city", "location", "office"]
//   - a spec object with a transform:
//     "description": {"field": "desc_html", "transform": "strip_html"}
type FieldMapParser struct {
	mapping map[string]fieldSpec
	baseURL string
}

type fieldSpec struct {
	fields    []string
	transform string
	// transform arguments
	prefix   string
	keywords []string
	sep      string
}

// Canonical target fields a mapping may bind.
var targetFields = map[string]bool{
	"external_id":     true,
	"title":           true,
	"description":     true,
	"location":        true,
	"job_url":         true,
	"department":      true,
	"employment_type": true,
	"seniority_level": true,
	"posted_date":     true,
	"is_remote":       true,
}

// NewFieldMapParser compiles a raw mapping (as loaded from the company
// configuration) into a parser. baseURL backs the prepend_url transform
// when a spec names no prefix of its own.
func NewFieldMapParser(mapping map[string]any, baseURL string) (*FieldMapParser, error) {
	if len(mapping) == 0 {
		return nil, fmt.Errorf("field mapping is empty")
	}
	p := &FieldMapParser{
		mapping: make(map[string]fieldSpec, len(mapping)),
		baseURL: baseURL,
	}
	for target, rawSpec := range mapping {
		if !targetFields[target] {
			return nil, fmt.Errorf("unknown target field %q", target)
		}
		spec, err := compileFieldSpec(rawSpec)
		if err != nil {
			return nil, fmt.Errorf("target field %q: %w", target, err)
		}
		p.mapping[target] = spec
	}
	return p, nil
}

func compileFieldSpec(raw any) (fieldSpec, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return fieldSpec{}, fmt.Errorf("empty source field")
		}
		return fieldSpec{fields: []string{v}}, nil
	case []any:
		var fields []string
		for _, item := range v {
			s, ok := item.(string)
			if !ok || s == "" {
				return fieldSpec{}, fmt.Errorf("fallback list entries must be field names")
			}
			fields = append(fields, s)
		}
		if len(fields) == 0 {
			return fieldSpec{}, fmt.Errorf("empty fallback list")
		}
		return fieldSpec{fields: fields}, nil
	case map[string]any:
		spec := fieldSpec{sep: ", "}
		switch f := v["field"].(type) {
		case string:
			spec.fields = []string{f}
		case []any:
			for _, item := range f {
				if s, ok := item.(string); ok && s != "" {
					spec.fields = append(spec.fields, s)
				}
			}
		}
		if len(spec.fields) == 0 {
			return fieldSpec{}, fmt.Errorf("spec object needs a field")
		}
		spec.transform, _ = v["transform"].(string)
		switch spec.transform {
		case "", "direct", "strip_html", "parse_date", "extract_first":
		case "prepend_url":
			spec.prefix, _ = v["prefix"].(string)
		case "join_list":
			if sep, ok := v["separator"].(string); ok {
				spec.sep = sep
			}
		case "contains_keywords":
			kws, _ := v["keywords"].([]any)
			for _, kw := range kws {
				if s, ok := kw.(string); ok && s != "" {
					spec.keywords = append(spec.keywords, strings.ToLower(s))
				}
			}
			if len(spec.keywords) == 0 {
				return fieldSpec{}, fmt.Errorf("contains_keywords needs keywords")
			}
		default:
			return fieldSpec{}, fmt.Errorf("unknown transform %q", spec.transform)
		}
		return spec, nil
	default:
		return fieldSpec{}, fmt.Errorf("unsupported mapping value %T", raw)
	}
}

// Parse applies the mapping to one record.
func (p *FieldMapParser) Parse(raw map[string]any) domain.Job {
	var job domain.Job
	for target, spec := range p.mapping {
		val := p.resolve(raw, spec)
		switch target {
		case "external_id":
			job.ExternalID, _ = val.(string)
		case "title":
			s, _ := val.(string)
			job.Title = strings.TrimSpace(s)
		case "description":
			job.Description, _ = val.(string)
		case "location":
			job.Location, _ = val.(string)
		case "job_url":
			job.JobURL, _ = val.(string)
		case "department":
			job.Department, _ = val.(string)
		case "employment_type":
			job.EmploymentType, _ = val.(string)
		case "seniority_level":
			job.SeniorityLevel, _ = val.(string)
		case "posted_date":
			if t, ok := val.(*time.Time); ok {
				job.PostedDate = t
			}
		case "is_remote":
			if b, ok := val.(bool); ok {
				job.IsRemote = b
			}
		}
	}
	return job
}

func (p *FieldMapParser) resolve(raw map[string]any, spec fieldSpec) any {
	var value any
	for _, field := range spec.fields {
		var v any
		if strings.Contains(field, ".") {
			v = nested(raw, field)
		} else {
			v = raw[field]
		}
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		value = v
		break
	}
	if value == nil {
		return nil
	}
	switch spec.transform {
	case "", "direct":
		return asString(value)
	case "strip_html":
		return htmlCleaner.CleanToText(asString(value))
	case "parse_date":
		return ParseDate(value)
	case "prepend_url":
		prefix := spec.prefix
		if prefix == "" {
			prefix = p.baseURL
		}
		return joinURL(prefix, asString(value))
	case "extract_first":
		if s := firstListString(value); s != "" {
			return s
		}
		return asString(value)
	case "join_list":
		if s := joinListStrings(value, spec.sep); s != "" {
			return s
		}
		return asString(value)
	case "contains_keywords":
		text := strings.ToLower(asString(value))
		for _, kw := range spec.keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
	return nil
}

func asString(v any) string {
	m := map[string]any{"v": v}
	return str(m, "v")
}

func joinURL(prefix, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(path, "/")
}
