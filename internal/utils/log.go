package utils

import (
	"fmt"
	"strings"
)

// Preview flattens s onto one line and keeps at most limit runes of it.
// Model prompts and responses are multi-line, which breaks console logs.
// A cut preview ends with the number of runes it dropped.
func Preview(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	flat := strings.Join(strings.Fields(s), " ")
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}

	return fmt.Sprintf("%s... (+%d)", string(runes[:limit]), len(runes)-limit)
}
