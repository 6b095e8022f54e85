// Package frontmatter reads and writes markdown documents with a YAML header.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Render serializes header as YAML between delimiters followed by body.
// Trailing whitespace of body is dropped; a non-empty body ends with one newline.
func Render(header any, body string) ([]byte, error) {
	var yamlBuf bytes.Buffer
	enc := yaml.NewEncoder(&yamlBuf)
	enc.SetIndent(4)
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	body = strings.TrimRight(body, " \t\r\n")

	var out bytes.Buffer
	out.WriteString(delimiter + "\n")
	out.WriteString(strings.TrimSpace(yamlBuf.String()))
	out.WriteString("\n" + delimiter + "\n\n")
	out.WriteString(body)
	if body != "" {
		out.WriteString("\n")
	}
	return out.Bytes(), nil
}

// Parse splits data into header (decoded into out) and body.
// Documents without a leading delimiter are all body.
func Parse(data []byte, out any) (string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, delimiter+"\n") {
		return text, nil
	}

	rest := text[len(delimiter)+1:]
	end := strings.Index(rest, "\n"+delimiter+"\n")
	var yamlPart, body string
	switch {
	case end >= 0:
		yamlPart = rest[:end]
		body = rest[end+len(delimiter)+2:]
	case strings.HasSuffix(rest, "\n"+delimiter):
		yamlPart = strings.TrimSuffix(rest, "\n"+delimiter)
	default:
		return "", fmt.Errorf("unterminated front matter")
	}

	if err := yaml.Unmarshal([]byte(yamlPart), out); err != nil {
		return "", fmt.Errorf("decode front matter: %w", err)
	}
	body = strings.TrimPrefix(body, "\n")
	return strings.TrimRight(body, "\n"), nil
}
