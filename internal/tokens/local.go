package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tumioparbe/web/internal/model"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/storage"
)

// LocalStore keeps the pair in client storage
type LocalStore struct {
	st storage.Storage
}

// NewLocalStore binds a LocalStore to a browser's storage
func NewLocalStore(st storage.Storage) *LocalStore {
	return &LocalStore{st: st}
}

func (s *LocalStore) Save(ctx context.Context, pair model.TokenPair) error {
	if err := storage.SetJSON(ctx, s.st, StorageKey, pair); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

func (s *LocalStore) Load(ctx context.Context) *model.TokenPair {
	var pair model.TokenPair
	if err := storage.GetJSON(ctx, s.st, StorageKey, &pair); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logctx.From(ctx).Debug("tokens_load_failed", slog.String("err", err.Error()))
		}
		return nil
	}
	return complete(&pair)
}

func (s *LocalStore) Clear(ctx context.Context) error {
	if err := s.st.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}
