package extraction

import (
	"encoding/json"
	"fmt"
)

// decodeModelJSON unmarshals a model response into out, falling back to
// scanning for a JSON object when the model wrapped it in markdown fences or
// prose despite the prompt.
func decodeModelJSON(content string, out any) error {
	if err := json.Unmarshal([]byte(content), out); err == nil {
		return nil
	}

	start := findJSONStart(content)
	if start < 0 {
		return fmt.Errorf("no JSON object in model response")
	}
	end := findJSONEnd(content, start)
	if end <= start {
		return fmt.Errorf("unterminated JSON object in model response")
	}

	if err := json.Unmarshal([]byte(content[start:end]), out); err != nil {
		return fmt.Errorf("failed to parse model response: %w", err)
	}
	return nil
}

// findJSONStart returns the index of the first '{' in content, or -1.
func findJSONStart(content string) int {
	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			return i
		}
	}
	return -1
}

// findJSONEnd returns the index just past the brace matching the '{' at
// start, tracking strings and escapes so braces inside values don't count.
func findJSONEnd(content string, start int) int {
	if start < 0 || start >= len(content) || content[start] != '{' {
		return -1
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		c := content[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
