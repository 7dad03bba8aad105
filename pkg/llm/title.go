package llm

import (
	"context"
	"strings"
	"unicode/utf8"
)

const titleSystemPrompt = `You name conversations. Reply with a short title ` +
	`(at most six words) describing the user's question. Reply with the ` +
	`title only, no quotes and no trailing punctuation.`

const titleMaxChars = 80

// GenerateTitle asks the provider for a short conversation title. Falls back
// to a truncated form of the question when the provider fails or returns
// nothing usable.
func GenerateTitle(ctx context.Context, provider Provider, question string) string {
	title, err := provider.Complete(ctx, titleSystemPrompt, question)
	if err != nil || strings.TrimSpace(title) == "" {
		return fallbackTitle(question)
	}

	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = clipTitle(title)
	if title == "" {
		return fallbackTitle(question)
	}
	return title
}

func fallbackTitle(question string) string {
	question = strings.TrimSpace(question)
	if idx := strings.IndexByte(question, '\n'); idx >= 0 {
		question = question[:idx]
	}
	question = clipTitle(question)
	if question == "" {
		return "untitled conversation"
	}
	return question
}

// clipTitle cuts at titleMaxChars without splitting a multi-byte rune.
func clipTitle(s string) string {
	if len(s) <= titleMaxChars {
		return s
	}
	cut := titleMaxChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
