package host

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/kasuganosora/charsheet/config"
	"github.com/kasuganosora/charsheet/plugin/hook"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Action is the outcome of a context-menu click.
type Action string

const (
	ActionIgnored Action = "ignored"
	ActionOpened  Action = "opened"
	ActionClosed  Action = "closed"
	ActionFailed  Action = "failed"
)

const restoreConcurrency = 4

// Integration ties the platform, the registry and the hook center together.
type Integration struct {
	platform Platform
	registry *Registry
	hooks    *hook.HookCenter
	cfg      config.HostConfig
	logger   *zap.Logger
}

func NewIntegration(platform Platform, registry *Registry, hooks *hook.HookCenter, cfg config.HostConfig, logger *zap.Logger) *Integration {
	if cfg.OpenAttempts < 1 {
		cfg.OpenAttempts = 1
	}
	if cfg.RestoreAttempts < 1 {
		cfg.RestoreAttempts = 1
	}
	return &Integration{platform: platform, registry: registry, hooks: hooks, cfg: cfg, logger: logger}
}

// Registry exposes the popover registry.
func (in *Integration) Registry() *Registry { return in.registry }

// open tries to open p up to attempts times with a fixed delay in between.
func (in *Integration) open(ctx context.Context, playerID string, p Popover, attempts int, delay time.Duration) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, in.platform.OpenPopover(ctx, playerID, p)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			in.logger.Warn("popover open failed, retrying",
				zap.String("player_id", playerID),
				zap.String("popover_id", p.ID),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
	return err
}

// HandleContextMenu toggles the popover of the clicked character. Selections
// that include tokens off the character layer are ignored. When every open
// attempt fails the popover is recorded as closed and ActionFailed is
// returned without an error; only registry failures are errors.
func (in *Integration) HandleContextMenu(ctx context.Context, playerID string, menu MenuContext) (Action, error) {
	if !menu.Applies() {
		return ActionIgnored, nil
	}
	characterID := menu.CharacterID()
	p := NewPopover(in.cfg.PublicURL, characterID)

	isOpen, err := in.registry.IsOpen(ctx, playerID, p.ID)
	if err != nil {
		return ActionFailed, err
	}

	if isOpen {
		if err := in.platform.ClosePopover(ctx, playerID, p.ID); err != nil {
			in.logger.Error("popover close failed",
				zap.String("player_id", playerID), zap.String("popover_id", p.ID), zap.Error(err))
			return ActionFailed, nil
		}
		if err := in.registry.SetOpen(ctx, playerID, p.ID, false); err != nil {
			return ActionFailed, err
		}
		in.fire(ctx, hook.OnPopoverClose, playerID, p.ID, characterID)
		return ActionClosed, nil
	}

	// a stale window may still exist on the client even if unrecorded
	if err := in.platform.ClosePopover(ctx, playerID, p.ID); err != nil {
		in.logger.Debug("pre-open close failed", zap.String("popover_id", p.ID), zap.Error(err))
	}

	if err := in.open(ctx, playerID, p, in.cfg.OpenAttempts, in.cfg.OpenDelay); err != nil {
		in.logger.Error("popover could not be opened",
			zap.String("player_id", playerID),
			zap.String("popover_id", p.ID),
			zap.Int("attempts", in.cfg.OpenAttempts),
			zap.Error(err))
		if err := in.registry.SetOpen(ctx, playerID, p.ID, false); err != nil {
			return ActionFailed, err
		}
		return ActionFailed, nil
	}
	if err := in.registry.SetOpen(ctx, playerID, p.ID, true); err != nil {
		return ActionOpened, err
	}
	in.fire(ctx, hook.OnPopoverOpen, playerID, p.ID, characterID)
	return ActionOpened, nil
}

// Restore reopens every popover recorded for playerID, concurrently. A
// popover that still fails after the configured attempts is logged and left
// in the registry so the next reload tries again. It returns the ids that
// were reopened.
func (in *Integration) Restore(ctx context.Context, playerID string) ([]string, error) {
	ids, err := in.registry.List(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := in.registry.Touch(ctx, playerID); err != nil {
		in.logger.Warn("registry ttl refresh failed", zap.String("player_id", playerID), zap.Error(err))
	}

	ok := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(restoreConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			p := NewPopover(in.cfg.PublicURL, CharacterIDFromPopover(id))
			p.ID = id
			if err := in.open(gctx, playerID, p, in.cfg.RestoreAttempts, in.cfg.RestoreDelay); err != nil {
				in.logger.Warn("popover could not be restored, user may need to reopen it",
					zap.String("player_id", playerID),
					zap.String("popover_id", id),
					zap.Error(err))
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	restored := make([]string, 0, len(ids))
	for i, id := range ids {
		if ok[i] {
			restored = append(restored, id)
		}
	}
	return restored, ctx.Err()
}

func (in *Integration) fire(ctx context.Context, name, playerID, popoverID, characterID string) {
	if in.hooks == nil {
		return
	}
	err := in.hooks.Trigger(ctx, &hook.Event{
		Name:        name,
		PlayerID:    playerID,
		PopoverID:   popoverID,
		CharacterID: characterID,
	})
	if err != nil {
		in.logger.Warn("popover hook failed", zap.String("event", name), zap.Error(err))
	}
}
