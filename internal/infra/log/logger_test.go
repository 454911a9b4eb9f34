package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(newLogger(&buf, "prod", "warn"), "monitor")
	logger.Info().Msg("скрыто")
	logger.Warn().Msg("видно")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ожидали одну JSON-запись, получили %q: %v", buf.String(), err)
	}
	if entry["component"] != "monitor" || entry["message"] != "видно" {
		t.Fatalf("неожиданная запись: %v", entry)
	}
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "prod", "громко")
	logger.Debug().Msg("debug")
	if buf.Len() != 0 {
		t.Fatal("по умолчанию debug не пишется")
	}
}
