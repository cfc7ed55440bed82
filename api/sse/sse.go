// Package sse streams popover commands and sheet change notifications to
// the tabletop shim.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/charsheet/cache"
	"github.com/kasuganosora/charsheet/host"
	mw "github.com/kasuganosora/charsheet/middleware"
	"github.com/kasuganosora/charsheet/plugin/hook"
	"go.uber.org/zap"
)

const (
	EventConnected        = "connected"
	EventHost             = "host"
	EventCharacterUpdated = "character_updated"

	keepaliveInterval = 30 * time.Second
)

// CharacterChannel carries change notifications for one character.
func CharacterChannel(characterID string) string {
	return host.ExtensionID + ":character:" + characterID
}

// Update is the payload of a character_updated event.
type Update struct {
	CharacterID string `json:"character_id"`
	Action      string `json:"action"`
	TraceID     string `json:"trace_id,omitempty"`
	Failed      bool   `json:"failed,omitempty"`
}

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub    cache.PubSub
	logger    *zap.Logger
	keepalive time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, logger: logger, keepalive: keepaliveInterval}
}

// Register publishes a character_updated notification after every write.
func (h *Handler) Register(hc *hook.HookCenter) {
	notify := func(action string) hook.HookFn {
		return func(ctx context.Context, ev *hook.Event) error {
			b, err := json.Marshal(Update{
				CharacterID: ev.CharacterID,
				Action:      action,
				TraceID:     ev.TraceID,
				Failed:      ev.Err != nil,
			})
			if err != nil {
				return err
			}
			return h.pubsub.Publish(ctx, CharacterChannel(ev.CharacterID), string(b))
		}
	}
	hc.Register(hook.AfterStatUpdate, 10, "sse", notify("update_stat"))
	hc.Register(hook.AfterEquip, 10, "sse", notify("equip"))
}

// ServeSSE handles GET /sse?token=<jwt>[&character=<id>...]. It runs behind
// the Auth middleware and streams the player's host commands plus updates
// for the listed characters.
func (h *Handler) ServeSSE(c *gin.Context) {
	playerID := mw.GetPlayerID(c)
	channels := []string{host.PlayerChannel(playerID)}
	for _, id := range c.QueryArray("character") {
		if id != "" {
			channels = append(channels, CharacterChannel(id))
		}
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, channels...)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscribe failed"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	hello, _ := json.Marshal(gin.H{"player_id": playerID})
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", EventConnected, hello)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			event := EventHost
			if msg.Channel != channels[0] {
				event = EventCharacterUpdated
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
