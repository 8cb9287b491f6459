package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// ExtractEmbeddedJSON pulls a JSON array assigned to a JavaScript
// variable out of page markup, for careers pages that inline their job
// list instead of serving an API. The array is located by scanning for
// the assignment and matching brackets, since a regex alone cannot
// bound nested JSON.
func ExtractEmbeddedJSON(page, varName string) ([]map[string]any, error) {
	assign := regexp.MustCompile(regexp.QuoteMeta(varName) + `\s*[:=]\s*\[`)
	loc := assign.FindStringIndex(page)
	if loc == nil {
		return nil, fmt.Errorf("variable %q not found in page", varName)
	}
	start := loc[1] - 1
	end, err := matchBracket(page, start)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", varName, err)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(page[start:end+1]), &records); err != nil {
		return nil, fmt.Errorf("decode embedded array %q: %w", varName, err)
	}
	return records, nil
}

// matchBracket returns the index of the ] closing the [ at start,
// skipping brackets inside string literals.
func matchBracket(s string, start int) (int, error) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated array")
}
