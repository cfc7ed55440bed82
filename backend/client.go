// Package backend talks to the external character API and maps its payloads
// onto the canonical model.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kasuganosora/charsheet/apperr"
	"github.com/kasuganosora/charsheet/model"
	"go.uber.org/zap"
)

// MsgNotFound is the exact message of the error returned when a read fails.
const MsgNotFound = "Character not found"

// SchemaHeader announces the payload schema this client expects back.
const SchemaHeader = "X-Charsheet-Schema"

// maxErrorBody caps how much of an error response is copied into messages.
const maxErrorBody = 4 << 10

// Client calls the character backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the API rooted at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) characterURL(id string, suffix ...string) string {
	parts := append([]string{c.baseURL, "characters", url.PathEscape(id)}, suffix...)
	return strings.Join(parts, "/")
}

// FetchCharacter reads one character. Any non-2xx status yields a not-found
// error whose message is exactly MsgNotFound.
func (c *Client) FetchCharacter(ctx context.Context, id string) (*model.CharacterData, error) {
	resp, err := c.do(ctx, http.MethodGet, c.characterURL(id), nil)
	if err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeUnavailable, "fetch character")
	}
	defer resp.Body.Close()

	if !ok(resp.StatusCode) {
		c.logger.Debug("character fetch rejected",
			zap.String("character_id", id),
			zap.Int("status", resp.StatusCode))
		return nil, apperr.NotFound(MsgNotFound).WithMeta("status", resp.StatusCode)
	}
	return c.decode(resp.Body, id)
}

// UpdateCharacterStat writes data back with PUT. A non-2xx response is not
// an error: data itself is returned so callers keep the unsaved value. A
// transport failure returns data together with an unavailable error.
func (c *Client) UpdateCharacterStat(ctx context.Context, id string, data *model.CharacterData) (*model.CharacterData, error) {
	body, err := json.Marshal(BuildWritePayload(data))
	if err != nil {
		return data, apperr.WrapWithCode(err, apperr.CodeInternal, "encode character")
	}
	resp, err := c.do(ctx, http.MethodPut, c.characterURL(id), body)
	if err != nil {
		return data, apperr.WrapWithCode(err, apperr.CodeUnavailable, "update character")
	}
	defer resp.Body.Close()

	if !ok(resp.StatusCode) {
		c.logger.Warn("character write rejected, keeping local value",
			zap.String("character_id", id),
			zap.Int("status", resp.StatusCode))
		return data, nil
	}
	updated, err := c.decode(resp.Body, id)
	if err != nil {
		return data, err
	}
	return updated, nil
}

// EquipItem asks the backend to move itemName into slot. There is no local
// fallback: a non-2xx response fails with the response body in the message.
func (c *Client) EquipItem(ctx context.Context, id, itemName string, slot model.Slot) (*model.CharacterData, error) {
	body, err := json.Marshal(map[string]string{"item_name": itemName, "slot": string(slot)})
	if err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeInternal, "encode equip request")
	}
	resp, err := c.do(ctx, http.MethodPatch, c.characterURL(id, "equip"), body)
	if err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeUnavailable, "equip item")
	}
	defer resp.Body.Close()

	if !ok(resp.StatusCode) {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apperr.Newf(apperr.CodeEquipFailed, "Failed to equip item: %s", text).
			WithMeta("status", resp.StatusCode)
	}
	return c.decode(resp.Body, id)
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(SchemaHeader, model.SchemaVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Error(err))
		return nil, err
	}
	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))
	return resp, nil
}

func (c *Client) decode(r io.Reader, id string) (*model.CharacterData, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeUnavailable, "read character")
	}
	data, err := Normalize(body, id)
	if err != nil {
		return nil, apperr.WrapWithCode(err, apperr.CodeInternal, "decode character")
	}
	return data, nil
}

func ok(status int) bool { return status >= 200 && status < 300 }
