package phrases

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tg-roulette-bot/internal/domain"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.json")
	if err := os.WriteFile(path, []byte(`{"phrases": ["понг", "  ", "жив"]}`), 0o600); err != nil {
		t.Fatalf("не удалось записать файл: %v", err)
	}
	src, err := Load(path)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("ожидали 2 фразы, получили %d", src.Len())
	}
	for i := 0; i < 50; i++ {
		got := src.Random()
		if got != "понг" && got != "жив" {
			t.Fatalf("неожиданная фраза %q", got)
		}
	}
}

func TestLoadEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.json")
	if err := os.WriteFile(path, []byte(`{"phrases": []}`), 0o600); err != nil {
		t.Fatalf("не удалось записать файл: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, domain.ErrNoPhrases) {
		t.Fatalf("ожидали ErrNoPhrases, получили %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("ожидали ошибку для отсутствующего файла")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.json")
	if err := os.WriteFile(path, []byte(`{"phrases": [`), 0o600); err != nil {
		t.Fatalf("не удалось записать файл: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("ожидали ошибку разбора")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	src, err := New([]string{"a", "b"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	all := src.All()
	all[0] = "изменено"
	if src.All()[0] != "a" {
		t.Fatal("All должен возвращать копию")
	}
}
