package host

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/kasuganosora/charsheet/apperr"
	"github.com/kasuganosora/charsheet/cache"
)

// Registry records which popovers each player has open. Every change is a
// single atomic read-modify-write on the cache, so concurrent clicks for the
// same player never lose an update.
type Registry struct {
	c   cache.Cache
	ttl time.Duration
}

func NewRegistry(c cache.Cache, ttl time.Duration) *Registry {
	return &Registry{c: c, ttl: ttl}
}

func registryKey(playerID string) string {
	return MetadataKey + ":" + playerID
}

func decodeIDs(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeInternal, "corrupt popover registry")
	}
	return ids, nil
}

// List returns the open popover ids for playerID in the order they were opened.
func (r *Registry) List(ctx context.Context, playerID string) ([]string, error) {
	raw, err := r.c.Get(ctx, registryKey(playerID))
	if cache.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeUnavailable, "read popover registry")
	}
	return decodeIDs(raw)
}

// IsOpen reports whether popoverID is recorded as open.
func (r *Registry) IsOpen(ctx context.Context, playerID, popoverID string) (bool, error) {
	ids, err := r.List(ctx, playerID)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, popoverID), nil
}

// Touch restarts the registry TTL for an active player. A player with no
// open popovers has nothing to refresh.
func (r *Registry) Touch(ctx context.Context, playerID string) error {
	err := r.c.Expire(ctx, registryKey(playerID), r.ttl)
	if err == nil || cache.IsNotFound(err) {
		return nil
	}
	return apperr.WrapWithCode(err, apperr.CodeUnavailable, "refresh popover registry")
}

// SetOpen adds or removes popoverID. Adding an id already present and
// removing a missing one are no-ops. An empty list deletes the key.
func (r *Registry) SetOpen(ctx context.Context, playerID, popoverID string, open bool) error {
	err := r.c.Update(ctx, registryKey(playerID), r.ttl, func(cur string, _ bool) (string, bool, error) {
		ids, err := decodeIDs(cur)
		if err != nil {
			// overwrite a corrupt value rather than wedge the player forever
			ids = nil
		}
		has := slices.Contains(ids, popoverID)
		switch {
		case open && !has:
			ids = append(ids, popoverID)
		case !open && has:
			ids = slices.DeleteFunc(ids, func(id string) bool { return id == popoverID })
		}
		if len(ids) == 0 {
			return "", false, nil
		}
		b, err := json.Marshal(ids)
		if err != nil {
			return "", false, err
		}
		return string(b), true, nil
	})
	if err != nil {
		return apperr.WrapWithCode(err, apperr.CodeUnavailable, "update popover registry")
	}
	return nil
}
