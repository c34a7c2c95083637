package telegram

import (
	"strings"
	"unicode/utf8"
)

// toTelegramMarkdown converts double-asterisk bold to Telegram's single
// asterisk form.
func toTelegramMarkdown(text string) string {
	var sb strings.Builder
	for {
		start := strings.Index(text, "**")
		if start < 0 {
			break
		}
		end := strings.Index(text[start+2:], "**")
		if end < 0 {
			break
		}
		sb.WriteString(text[:start])
		sb.WriteString("*" + text[start+2:start+2+end] + "*")
		text = text[start+2+end+2:]
	}
	sb.WriteString(text)
	return sb.String()
}

// chunkMessage splits a message into chunks that fit within Telegram's
// message size limit. Cuts land on newline or rune boundaries; a chunk
// split mid-rune would be invalid UTF-8 and rejected by sendMessage.
func chunkMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		// Try to split at a newline
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		} else {
			for cutAt > 0 && !utf8.RuneStart(text[cutAt]) {
				cutAt--
			}
			if cutAt == 0 {
				cutAt = maxLen
			}
		}

		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}

	return chunks
}
