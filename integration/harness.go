package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/charsheet/api/rest"
	"github.com/kasuganosora/charsheet/api/sse"
	"github.com/kasuganosora/charsheet/audit"
	"github.com/kasuganosora/charsheet/backend"
	"github.com/kasuganosora/charsheet/cache"
	"github.com/kasuganosora/charsheet/config"
	"github.com/kasuganosora/charsheet/host"
	mw "github.com/kasuganosora/charsheet/middleware"
	"github.com/kasuganosora/charsheet/plugin/hook"
	"github.com/kasuganosora/charsheet/scheduler"
	"github.com/kasuganosora/charsheet/testutil"
	"github.com/kasuganosora/charsheet/view"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// TestServer wraps a real HTTP server with every subsystem wired together
// against a fake character backend.
type TestServer struct {
	DB      *gorm.DB
	Cache   cache.Cache
	PubSub  cache.PubSub
	Backend *testutil.FakeCharacterAPI
	Views   *view.Manager
	Audit   *audit.Service
	Server  *httptest.Server
	URL     string
	Sec     config.SecurityConfig
}

// NewTestServer mirrors the dependency wiring of the serve command.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	fake := testutil.NewFakeCharacterAPI(t)

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTL:         72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}
	hostCfg := config.HostConfig{
		OpenAttempts:    3,
		OpenDelay:       5 * time.Millisecond,
		RestoreAttempts: 2,
		RestoreDelay:    5 * time.Millisecond,
		RegistryTTL:     time.Hour,
		PublicURL:       "http://sheet.test",
	}

	auditSvc := audit.New(db, logger)
	sched := scheduler.New(logger)
	hc := hook.NewHookCenter()
	auditSvc.Register(hc)

	client := backend.NewClient(fake.URL, 2*time.Second, logger)
	views := view.NewManager(client, hc, time.Minute, logger)
	views.Register(hc)
	views.Schedule(sched, time.Minute)

	integration := host.NewIntegration(host.NewPubSubPlatform(pubsub), host.NewRegistry(c, hostCfg.RegistryTTL), hc, hostCfg, logger)
	sseH := sse.NewHandler(pubsub, logger)
	sseH.Register(hc)

	tmpl, err := apirest.LoadTemplates()
	require.NoError(t, err)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.NewRateLimiter(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst).Middleware())
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sheetH := apirest.NewSheetHandler(views, auditSvc, "")
	hostH := apirest.NewHostHandler(integration, c, sec)
	r.GET("/", sheetH.Page)
	r.GET("/character/:id", sheetH.Page)

	api := r.Group("/api")
	{
		charG := api.Group("/characters/:id")
		charG.GET("/sheet", sheetH.Sheet)
		charG.DELETE("/sheet", sheetH.Unmount)
		charG.GET("/render", sheetH.Render)
		charG.PUT("/stats/:code", sheetH.UpdateStat)
		charG.POST("/equip", sheetH.Equip)
		charG.GET("/history", sheetH.History)

		hostG := api.Group("/host")
		hostG.Use(mw.IPWhitelist(nil, logger))
		hostG.POST("/session", hostH.Session)
		hostG.DELETE("/session", mw.Auth(sec, c), hostH.EndSession)
		hostG.POST("/context-menu", mw.Auth(sec, c), hostH.ContextMenu)
		hostG.POST("/restore", mw.Auth(sec, c), hostH.Restore)
		hostG.GET("/popovers", mw.Auth(sec, c), hostH.Popovers)
	}
	r.GET("/sse", mw.Auth(sec, c), sseH.ServeSSE)

	server := httptest.NewServer(r)
	ts := &TestServer{
		DB:      db,
		Cache:   c,
		PubSub:  pubsub,
		Backend: fake,
		Views:   views,
		Audit:   auditSvc,
		Server:  server,
		URL:     server.URL,
		Sec:     sec,
	}
	t.Cleanup(func() {
		server.Close()
		sched.Stop()
		auditSvc.Stop(context.Background())
	})
	return ts
}

// Do sends a request with a JSON body and optional Bearer token.
func (ts *TestServer) Do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into target.
func ReadJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// Session issues a host session token for playerID.
func (ts *TestServer) Session(t *testing.T, playerID string) string {
	t.Helper()
	resp := ts.Do(t, http.MethodPost, "/api/host/session", map[string]string{"player_id": playerID}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	ReadJSON(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

// Event is one server-sent event.
type Event struct {
	Name string
	Data string
}

// EventStream reads events from an open /sse connection.
type EventStream struct {
	events chan Event
	cancel context.CancelFunc
}

// Connect opens the SSE stream, subscribed to the given characters, and
// waits for the connected event.
func (ts *TestServer) Connect(t *testing.T, token string, characters ...string) *EventStream {
	t.Helper()
	q := "?token=" + token
	for _, id := range characters {
		q += "&character=" + id
	}
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse"+q, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	es := &EventStream{events: make(chan Event, 32), cancel: cancel}
	go func() {
		defer resp.Body.Close()
		defer close(es.events)
		sc := bufio.NewScanner(resp.Body)
		var ev Event
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.Data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			case line == "" && ev.Name != "":
				es.events <- ev
				ev = Event{}
			}
		}
	}()
	t.Cleanup(es.Close)

	ev := es.Next(t, 2*time.Second)
	require.Equal(t, sse.EventConnected, ev.Name)
	return es
}

// Next returns the next event, failing the test after timeout.
func (es *EventStream) Next(t *testing.T, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-es.events:
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// NextNamed skips events until one called name arrives.
func (es *EventStream) NextNamed(t *testing.T, name string, timeout time.Duration) Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		ev := es.Next(t, time.Until(deadline))
		if ev.Name == name {
			return ev
		}
	}
}

func (es *EventStream) Close() { es.cancel() }
