// Package tokens persists the access/refresh pair in two places: the
// browser's client storage and a pair of cookies that request-level
// middleware can read without touching storage.
package tokens

import (
	"context"
	"errors"

	"github.com/tumioparbe/web/internal/model"
)

const (
	// StorageKey is the client storage key holding the JSON token pair
	StorageKey = "tumio_parbe_auth_tokens"

	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// ErrReadOnly is returned when writing through a cookie store that has no
// response to write to.
var ErrReadOnly = errors.New("tokens: cookie store is read-only")

// Store persists a TokenPair. Load never fails: anything absent, partial or
// malformed loads as nil. Clear is idempotent.
type Store interface {
	Save(ctx context.Context, pair model.TokenPair) error
	Load(ctx context.Context) *model.TokenPair
	Clear(ctx context.Context) error
}

// Dual is the token store used by pages and the API client: writes go to
// client storage and cookies, reads come from client storage.
type Dual struct {
	Local   Store
	Cookies Store
}

// NewDual joins a client storage adapter and a cookie adapter.
func NewDual(local, cookies Store) *Dual {
	return &Dual{Local: local, Cookies: cookies}
}

func (d *Dual) Save(ctx context.Context, pair model.TokenPair) error {
	if err := d.Local.Save(ctx, pair); err != nil {
		return err
	}
	return d.Cookies.Save(ctx, pair)
}

func (d *Dual) Load(ctx context.Context) *model.TokenPair {
	return d.Local.Load(ctx)
}

// Clear removes both copies even when one of them fails.
func (d *Dual) Clear(ctx context.Context) error {
	return errors.Join(d.Local.Clear(ctx), d.Cookies.Clear(ctx))
}

func complete(pair *model.TokenPair) *model.TokenPair {
	if !pair.Complete() {
		return nil
	}
	out := *pair
	return &out
}
