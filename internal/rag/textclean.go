package rag

import (
	"regexp"
	"strings"
)

var (
	chunkEmoji = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}]+`)
	finalEmoji = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F900}-\x{1F9FF}\x{1F1E0}-\x{1F1FF}\x{2600}-\x{26FF}\x{2702}-\x{27B0}]+`)
	spaces     = regexp.MustCompile(`\s+`)

	markdown = strings.NewReplacer("\r", " ", "\n", " ", "**", "", "*", "", "_", "", "###", "", "##", "", "#", "")
	bullets  = strings.NewReplacer("- ", "", "• ", "")
)

// CleanChunk strips line breaks, markdown and emoji from a streamed delta. Spacing is
// kept as is so consecutive chunks still join correctly.
func CleanChunk(chunk string) string {
	if chunk == "" {
		return ""
	}
	return chunkEmoji.ReplaceAllString(markdown.Replace(chunk), "")
}

// CleanResponse produces the single paragraph stored and returned as final text.
func CleanResponse(text string) string {
	if text == "" {
		return ""
	}
	cleaned := bullets.Replace(markdown.Replace(text))
	cleaned = finalEmoji.ReplaceAllString(cleaned, "")
	cleaned = spaces.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
