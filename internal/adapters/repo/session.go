package repo

import (
	"context"

	"github.com/gotd/td/session"
)

// SessionStore — хранилище именованных MTProto-сессий.
type SessionStore interface {
	LoadMTProtoSession(ctx context.Context, name string) ([]byte, error)
	StoreMTProtoSession(ctx context.Context, name string, data []byte) error
}

// SessionStorage адаптирует SessionStore к session.Storage из gotd.
type SessionStorage struct {
	store SessionStore
	name  string
}

var _ session.Storage = (*SessionStorage)(nil)

// NewSessionStorage создаёт хранилище сессии с именем name.
func NewSessionStorage(store SessionStore, name string) *SessionStorage {
	return &SessionStorage{store: store, name: name}
}

// LoadSession загружает сессию.
func (s *SessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	return s.store.LoadMTProtoSession(ctx, s.name)
}

// StoreSession сохраняет сессию.
func (s *SessionStorage) StoreSession(ctx context.Context, data []byte) error {
	return s.store.StoreMTProtoSession(ctx, s.name, data)
}
