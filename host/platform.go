package host

import (
	"context"
	"encoding/json"

	"github.com/kasuganosora/charsheet/cache"
)

// Platform opens and closes popovers on a player's tabletop client.
type Platform interface {
	OpenPopover(ctx context.Context, playerID string, p Popover) error
	ClosePopover(ctx context.Context, playerID, popoverID string) error
}

// Command types sent to the browser shim.
const (
	CmdOpenPopover  = "popover.open"
	CmdClosePopover = "popover.close"
)

// Command is one instruction for the shim, delivered over the player's
// channel and relayed by the SSE endpoint.
type Command struct {
	Type      string   `json:"type"`
	Popover   *Popover `json:"popover,omitempty"`
	PopoverID string   `json:"popover_id,omitempty"`
}

// PlayerChannel is the pub/sub channel carrying commands for playerID.
func PlayerChannel(playerID string) string {
	return ExtensionID + ":player:" + playerID
}

// PubSubPlatform forwards popover commands to the shim through pub/sub.
type PubSubPlatform struct {
	ps cache.PubSub
}

func NewPubSubPlatform(ps cache.PubSub) *PubSubPlatform {
	return &PubSubPlatform{ps: ps}
}

func (p *PubSubPlatform) OpenPopover(ctx context.Context, playerID string, pop Popover) error {
	return p.send(ctx, playerID, Command{Type: CmdOpenPopover, Popover: &pop})
}

func (p *PubSubPlatform) ClosePopover(ctx context.Context, playerID, popoverID string) error {
	return p.send(ctx, playerID, Command{Type: CmdClosePopover, PopoverID: popoverID})
}

func (p *PubSubPlatform) send(ctx context.Context, playerID string, cmd Command) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return p.ps.Publish(ctx, PlayerChannel(playerID), string(b))
}
