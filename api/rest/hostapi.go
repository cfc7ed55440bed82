package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/charsheet/cache"
	"github.com/kasuganosora/charsheet/config"
	"github.com/kasuganosora/charsheet/host"
	mw "github.com/kasuganosora/charsheet/middleware"
)

// HostHandler handles the calls relayed by the tabletop shim.
type HostHandler struct {
	integration *host.Integration
	cache       cache.Cache
	sec         config.SecurityConfig
}

func NewHostHandler(integration *host.Integration, c cache.Cache, sec config.SecurityConfig) *HostHandler {
	return &HostHandler{integration: integration, cache: c, sec: sec}
}

type sessionRequest struct {
	PlayerID string `json:"player_id" binding:"required,max=128"`
}

// Session handles POST /api/host/session. It issues the token that scopes
// the player's popover state; it does not authenticate the player.
func (h *HostHandler) Session(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := mw.GenerateToken(req.PlayerID, h.sec.JWTSecret, h.sec.JWTTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, mw.SessionKey(token), req.PlayerID, h.sec.JWTTTL); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "player_id": req.PlayerID})
}

// EndSession handles DELETE /api/host/session. The token stops working
// immediately; open popovers stay recorded for the player's next session.
func (h *HostHandler) EndSession(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Del(ctx, mw.SessionKey(mw.GetSessionToken(c))); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

// ContextMenu handles POST /api/host/context-menu with the host's menu context.
func (h *HostHandler) ContextMenu(c *gin.Context) {
	var menu host.MenuContext
	if err := c.ShouldBindJSON(&menu); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, err := h.integration.HandleContextMenu(c.Request.Context(), mw.GetPlayerID(c), menu)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"action":     action,
		"popover_id": host.PopoverID(menu.CharacterID()),
	})
}

// Restore handles POST /api/host/restore, sent by the shim after a reload.
func (h *HostHandler) Restore(c *gin.Context) {
	restored, err := h.integration.Restore(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if restored == nil {
		restored = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"restored": restored})
}

// Popovers handles GET /api/host/popovers.
func (h *HostHandler) Popovers(c *gin.Context) {
	ids, err := h.integration.Registry().List(c.Request.Context(), mw.GetPlayerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"popovers":        ids,
		"context_menu_id": host.ContextMenuID,
		"layer":           host.CharacterLayer,
	})
}
