// Package host drives the tabletop side of the sheet: the token context
// menu, the per-character popovers and the record of which ones a player
// has open.
package host

import (
	"strings"
)

const (
	ExtensionID    = "charsheet"
	ContextMenuID  = ExtensionID + "/context-menu"
	MetadataKey    = ExtensionID + "/openPopovers"
	CharacterLayer = "CHARACTER"

	PopoverWidth  = 576
	PopoverHeight = 864

	popoverPrefix = ExtensionID + "/popover"
)

// Popover describes one popover window on the host.
type Popover struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// PopoverID returns the popover id for a character. An empty id yields the
// shared popover.
func PopoverID(characterID string) string {
	if characterID == "" {
		return popoverPrefix
	}
	return popoverPrefix + "-" + characterID
}

// CharacterIDFromPopover is the inverse of PopoverID.
func CharacterIDFromPopover(popoverID string) string {
	return strings.TrimPrefix(strings.TrimPrefix(popoverID, popoverPrefix), "-")
}

// PanelURL is the sheet page a popover loads, relative to publicURL.
func PanelURL(publicURL, characterID string) string {
	base := strings.TrimRight(publicURL, "/")
	if characterID == "" {
		return base + "/"
	}
	return base + "/character/" + characterID
}

// NewPopover builds the fixed-size popover for a character.
func NewPopover(publicURL, characterID string) Popover {
	return Popover{
		ID:     PopoverID(characterID),
		URL:    PanelURL(publicURL, characterID),
		Width:  PopoverWidth,
		Height: PopoverHeight,
	}
}

// MenuItem is a token the context menu was opened on.
type MenuItem struct {
	ID    string `json:"id"`
	Layer string `json:"layer"`
}

// MenuContext is what the host passes to a context-menu click.
type MenuContext struct {
	Items []MenuItem `json:"items"`
}

// Applies reports whether something is selected and every selected item
// sits on the character layer, the condition the menu entry is registered
// with.
func (m MenuContext) Applies() bool {
	if len(m.Items) == 0 {
		return false
	}
	for _, it := range m.Items {
		if it.Layer != CharacterLayer {
			return false
		}
	}
	return true
}

// CharacterID is the id of the first selected token, or "".
func (m MenuContext) CharacterID() string {
	if len(m.Items) == 0 {
		return ""
	}
	return m.Items[0].ID
}
