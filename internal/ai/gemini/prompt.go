package gemini

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"
)

//go:embed prompts/*.md
var promptFS embed.FS

const maxUserInstructionRunes = 500

func mustPrompt(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name)
	if err != nil {
		panic(fmt.Sprintf("missing embedded prompt %s: %v", name, err))
	}
	return string(data)
}

// fill replaces {{KEY}} placeholders. Unknown placeholders are left as is.
func fill(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

const maxAnswerRunes = 8000

var bracketReplacer = strings.NewReplacer("[", "(", "]", ")")

// dropControl removes control characters except newlines and tabs.
func dropControl(value string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, value)
}

// sanitizeLine flattens a user supplied value to one line and neutralises
// square brackets, which delimit prompt sections.
func sanitizeLine(value string) string {
	value = bracketReplacer.Replace(dropControl(value))
	return strings.Join(strings.Fields(value), " ")
}

// sanitizeText keeps the line structure of candidate text such as code in an
// answer, but neutralises section delimiters and caps the length.
func sanitizeText(value string) string {
	value = bracketReplacer.Replace(dropControl(strings.ReplaceAll(value, "\r\n", "\n")))

	lines := strings.Split(value, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	value = strings.TrimSpace(strings.Join(lines, "\n"))

	if runes := []rune(value); len(runes) > maxAnswerRunes {
		value = string(runes[:maxAnswerRunes])
	}
	return value
}

// sanitizeBlock renders free text as an indented bullet list, one bullet per
// non-empty line, truncated to maxUserInstructionRunes.
func sanitizeBlock(value string) string {
	value = bracketReplacer.Replace(dropControl(value))

	var lines []string
	remaining := maxUserInstructionRunes
	for _, line := range strings.Split(value, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" || remaining <= 0 {
			continue
		}
		if runes := []rune(line); len(runes) > remaining {
			line = string(runes[:remaining])
		}
		remaining -= len([]rune(line))
		lines = append(lines, "  - "+line)
	}

	if len(lines) == 0 {
		return "  - none"
	}
	return strings.Join(lines, "\n")
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")

	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start > 0 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

// decodeJSON parses a model reply into out. Values are decoded weakly so that
// "8" and 8 or "true" and true are accepted alike.
func decodeJSON(raw string, out any) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return fmt.Errorf("parse gemini response: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}
