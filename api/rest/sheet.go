package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/charsheet/apperr"
	"github.com/kasuganosora/charsheet/audit"
	"github.com/kasuganosora/charsheet/game/item"
	"github.com/kasuganosora/charsheet/host"
	mw "github.com/kasuganosora/charsheet/middleware"
	"github.com/kasuganosora/charsheet/model"
	"github.com/kasuganosora/charsheet/render"
	"github.com/kasuganosora/charsheet/view"
)

const defaultHistoryLimit = 20

// SheetHandler serves the sheet pages and the sheet API.
type SheetHandler struct {
	views       *view.Manager
	audit       *audit.Service
	defaultChar string
}

// NewSheetHandler creates a SheetHandler. audit may be nil, which disables
// the history endpoint.
func NewSheetHandler(views *view.Manager, auditSvc *audit.Service, defaultChar string) *SheetHandler {
	if defaultChar == "" {
		defaultChar = view.DefaultCharacterID
	}
	return &SheetHandler{views: views, audit: auditSvc, defaultChar: defaultChar}
}

func requestCtx(c *gin.Context) context.Context {
	return view.WithPlayerID(c.Request.Context(), mw.GetPlayerID(c))
}

func popoverParam(c *gin.Context) string {
	return c.Query("popover")
}

// mount returns the sheet for the request, reloading it when refresh=1.
func (h *SheetHandler) mount(c *gin.Context, characterID string) (*view.Sheet, view.State, error) {
	ctx := requestCtx(c)
	s, st, err := h.views.Mount(ctx, popoverParam(c), characterID)
	if err != nil {
		return nil, st, err
	}
	if c.Query("refresh") == "1" {
		st, err = s.Load(ctx)
	}
	return s, st, err
}

// Page handles GET / and GET /character/:id.
func (h *SheetHandler) Page(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		id = view.ExtractCharacterID(c.Request.URL.Path, c.Request.URL.Query(), h.defaultChar)
	}
	tab := c.DefaultQuery("tab", view.TabCharacter)
	if tab != view.TabEquipment {
		tab = view.TabCharacter
	}
	_, st, err := h.mount(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.HTML(http.StatusOK, "sheet.html", gin.H{
		"Page":        view.Compose(st),
		"Tab":         tab,
		"TabLinks":    tabLinks(c),
		"Popover":     popoverParam(c),
		"GridColumns": item.GridColumns,
	})
}

// tabLinks builds the tab hrefs from the request's query so the popover and
// character id survive a tab switch.
func tabLinks(c *gin.Context) map[string]string {
	links := make(map[string]string, 2)
	for _, tab := range []string{view.TabCharacter, view.TabEquipment} {
		q := c.Request.URL.Query()
		q.Del("refresh")
		q.Set("tab", tab)
		links[tab] = "?" + q.Encode()
	}
	return links
}

// Sheet handles GET /api/characters/:id/sheet.
func (h *SheetHandler) Sheet(c *gin.Context) {
	_, st, err := h.mount(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Compose(st))
}

// Render handles GET /api/characters/:id/render.
func (h *SheetHandler) Render(c *gin.Context) {
	_, st, err := h.mount(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if st.Data == nil {
		writeError(c, loadError(st))
		return
	}
	c.JSON(http.StatusOK, render.Render(st.Data.Character, st.Data.Character.Name))
}

func loadError(st view.State) error {
	if st.Err == view.ErrTextNotFound {
		return apperr.NotFound(st.Err)
	}
	return apperr.New(apperr.CodeUnavailable, st.Err)
}

type updateStatRequest struct {
	Value *int `json:"value" binding:"required"`
}

// UpdateStat handles PUT /api/characters/:id/stats/:code.
func (h *SheetHandler) UpdateStat(c *gin.Context) {
	var req updateStatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, _, err := h.mount(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	st, err := s.UpdateStat(requestCtx(c), model.StatCode(c.Param("code")), *req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Compose(st))
}

type equipRequest struct {
	ItemName string     `json:"item_name" binding:"required"`
	Slot     model.Slot `json:"slot"      binding:"required"`
	Confirm  bool       `json:"confirm"`
}

// Equip handles POST /api/characters/:id/equip. An occupied slot answers
// 409 with the confirmation prompt; resend with confirm=true to proceed.
func (h *SheetHandler) Equip(c *gin.Context) {
	var req equipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Slot.Valid() {
		writeError(c, apperr.InvalidArgumentf("unknown slot %q", req.Slot))
		return
	}
	s, _, err := h.mount(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	st, err := s.Equip(requestCtx(c), req.ItemName, req.Slot, req.Confirm)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Compose(st))
}

// Unmount handles DELETE /api/characters/:id/sheet.
func (h *SheetHandler) Unmount(c *gin.Context) {
	popover := popoverParam(c)
	if popover == "" {
		popover = host.PopoverID(c.Param("id"))
	}
	c.JSON(http.StatusOK, gin.H{"unmounted": h.views.Unmount(popover)})
}

// History handles GET /api/characters/:id/history.
func (h *SheetHandler) History(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	logs, err := h.audit.Recent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": logs})
}
