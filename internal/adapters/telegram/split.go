package telegram

import "strings"

const messageLimit = 4096

// SplitMessage делит текст на части не длиннее лимита сообщения Telegram.
func SplitMessage(text string) []string {
	return splitLimit(text, messageLimit)
}

// splitLimit режет по переводу строки, затем по пробелу, иначе по границе лимита.
func splitLimit(text string, limit int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	var parts []string
	for len(runes) > limit {
		cut := lastIndex(runes[:limit+1], '\n')
		if cut <= 0 {
			cut = lastIndex(runes[:limit+1], ' ')
		}
		if cut <= 0 {
			cut = limit
		}
		if chunk := strings.TrimSpace(string(runes[:cut])); chunk != "" {
			parts = append(parts, chunk)
		}
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " \n"))
	}
	if chunk := strings.TrimSpace(string(runes)); chunk != "" {
		parts = append(parts, chunk)
	}
	return parts
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
