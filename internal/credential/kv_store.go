package credential

import (
	"context"
	"encoding/json"
	"fmt"

	"fuelcoach-go/internal/constants"
	"fuelcoach-go/internal/storage"
)

// KVStore keeps credentials in a storage.Backend. Both tokens live under one key
// so a refresh rotation is a single write.
type KVStore struct {
	backend storage.Backend
}

// NewKVStore returns a Store backed by backend.
func NewKVStore(backend storage.Backend) *KVStore {
	return &KVStore{backend: backend}
}

// NewMemoryStore returns a Store that lives only in process memory.
func NewMemoryStore() *KVStore {
	return NewKVStore(storage.NewMemoryBackend())
}

func (s *KVStore) Tokens(ctx context.Context) (Tokens, error) {
	var t Tokens
	if err := s.read(ctx, constants.KeyTokens, &t); err != nil {
		return Tokens{}, fmt.Errorf("read tokens: %w", err)
	}
	return t, nil
}

func (s *KVStore) SetTokens(ctx context.Context, tokens Tokens) error {
	if err := s.write(ctx, constants.KeyTokens, tokens); err != nil {
		return fmt.Errorf("write tokens: %w", err)
	}
	return nil
}

func (s *KVStore) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, constants.KeyTokens); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

func (s *KVStore) Preferences(ctx context.Context) (Preferences, error) {
	var p Preferences
	if err := s.read(ctx, constants.KeyPreferences, &p); err != nil {
		return Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	return p, nil
}

func (s *KVStore) SetPreferences(ctx context.Context, prefs Preferences) error {
	if err := s.write(ctx, constants.KeyPreferences, prefs); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// read leaves v untouched when the key is absent.
func (s *KVStore) read(ctx context.Context, key string, v any) error {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (s *KVStore) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, key, data)
}
