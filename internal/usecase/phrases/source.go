package phrases

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"tg-roulette-bot/internal/domain"
)

// Source хранит неизменяемый список фраз для /ping.
type Source struct {
	phrases []string
}

// New создаёт источник из списка. Пустые строки отбрасываются.
func New(phrases []string) (*Source, error) {
	cleaned := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return nil, domain.ErrNoPhrases
	}
	return &Source{phrases: cleaned}, nil
}

type phrasesFile struct {
	Phrases []string `json:"phrases"`
}

// Load читает фразы из JSON-файла вида {"phrases": [...]}.
func Load(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение файла фраз: %w", err)
	}
	var file phrasesFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("разбор файла фраз %s: %w", path, err)
	}
	src, err := New(file.Phrases)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// Random возвращает случайную фразу.
func (s *Source) Random() string {
	return s.phrases[rand.IntN(len(s.phrases))]
}

// All возвращает копию списка.
func (s *Source) All() []string {
	return append([]string(nil), s.phrases...)
}

// Len возвращает количество фраз.
func (s *Source) Len() int {
	return len(s.phrases)
}

var _ domain.PhraseSource = (*Source)(nil)
