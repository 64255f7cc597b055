package mutate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Variables is a macro's declared variable list. In JSON it is either a
// list of strings or a single string holding a list literal such as
// "['n', 'm=2']".
type Variables []string

// UnmarshalJSON accepts a JSON list or a list-literal string.
func (v *Variables) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*v = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("variables must be a list or a string: %w", err)
	}
	parsed, err := ParseVariables(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVariables parses a variable list given as text. Two forms are
// accepted: a bracketed list literal of quoted strings ("['n', 'm=2']")
// and a plain comma-separated list ("n, m=2"). Blank input is an empty
// list.
func ParseVariables(s string) (Variables, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Variables{}, nil
	}
	if !strings.HasPrefix(s, "[") {
		var out Variables
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	return parseListLiteral(s)
}

// parseListLiteral parses a list literal whose elements are single- or
// double-quoted strings. A trailing comma is allowed.
func parseListLiteral(s string) (Variables, error) {
	if !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("invalid variable list %q: missing closing bracket", s)
	}
	body := s[1 : len(s)-1]
	out := Variables{}
	i := 0
	for {
		for i < len(body) && body[i] == ' ' {
			i++
		}
		if i == len(body) {
			return out, nil
		}
		quote := body[i]
		if quote != '\'' && quote != '"' {
			return nil, fmt.Errorf("invalid variable list %q: expected quoted string at offset %d", s, i+1)
		}
		end := strings.IndexByte(body[i+1:], quote)
		if end < 0 {
			return nil, fmt.Errorf("invalid variable list %q: unterminated string", s)
		}
		out = append(out, body[i+1:i+1+end])
		i += end + 2

		for i < len(body) && body[i] == ' ' {
			i++
		}
		if i == len(body) {
			return out, nil
		}
		if body[i] != ',' {
			return nil, fmt.Errorf("invalid variable list %q: expected ',' at offset %d", s, i+1)
		}
		i++
	}
}
