package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/metrics"
	"github.com/robalobadob/numguess/internal/runner"
	"github.com/robalobadob/numguess/internal/store"
	"github.com/robalobadob/numguess/internal/target"
)

const testCookie = "numguess_session"

type stubTicker struct{ c chan time.Time }

func (s stubTicker) C() <-chan time.Time { return s.c }
func (s stubTicker) Stop()               {}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	mgr    *runner.Manager
}

func newTestEnv(t *testing.T, secret int) *testEnv {
	t.Helper()
	mgr := runner.NewManager(runner.Config{
		Backend:      store.NewMemoryStore(),
		BestScoreKey: "highScore",
		Generator:    target.Fixed(secret),
		Round: runner.Options{
			NewTicker: func(time.Duration) runner.Ticker { return stubTicker{c: make(chan time.Time)} },
		},
	})
	s := New(Deps{
		Manager:      mgr,
		Sessions:     NewSessions("test-secret", testCookie, time.Hour, false),
		Metrics:      metrics.New(),
		ClientOrigin: "http://localhost:5173",
	})
	srv := httptest.NewServer(s.Handler())
	jar, _ := cookiejar.New(nil)
	t.Cleanup(func() {
		srv.Close()
		mgr.Close()
	})
	return &testEnv{srv: srv, client: &http.Client{Jar: jar}, mgr: mgr}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(res.Body)
	return res.StatusCode, buf.Bytes()
}

func (e *testEnv) snapshot(t *testing.T, method, path string, body any) (int, game.Snapshot) {
	t.Helper()
	code, raw := e.do(t, method, path, body)
	var snap game.Snapshot
	if code == http.StatusOK {
		if err := json.Unmarshal(raw, &snap); err != nil {
			t.Fatalf("decode snapshot %s: %v", raw, err)
		}
	}
	return code, snap
}

func TestHealthAndIndex(t *testing.T) {
	e := newTestEnv(t, 73)
	if code, body := e.do(t, "GET", "/health", nil); code != 200 || !strings.Contains(string(body), `"ok":true`) {
		t.Fatalf("health = %d %s", code, body)
	}
	if code, _ := e.do(t, "GET", "/", nil); code != 200 {
		t.Fatalf("index = %d", code)
	}
	if code, body := e.do(t, "GET", "/nope", nil); code != 404 || !strings.Contains(string(body), "not_found") {
		t.Fatalf("404 = %d %s", code, body)
	}
}

func TestDifficulties(t *testing.T) {
	e := newTestEnv(t, 73)
	code, body := e.do(t, "GET", "/difficulties", nil)
	if code != 200 {
		t.Fatalf("status = %d", code)
	}
	var rules []struct {
		Key         string `json:"key"`
		MaxAttempts int    `json:"maxAttempts"`
	}
	if err := json.Unmarshal(body, &rules); err != nil {
		t.Fatal(err)
	}
	if len(rules) != 4 || rules[1].Key != "medium" || rules[1].MaxAttempts != 8 {
		t.Fatalf("difficulties = %+v", rules)
	}
}

func TestSessionCookieIdentifiesPlayer(t *testing.T) {
	e := newTestEnv(t, 73)
	e.do(t, "POST", "/round/menu", nil)

	u, _ := url.Parse(e.srv.URL)
	cookies := e.client.Jar.Cookies(u)
	if len(cookies) != 1 || cookies[0].Name != testCookie {
		t.Fatalf("cookies = %v", cookies)
	}
	e.do(t, "POST", "/round/menu", nil)
	if e.mgr.Len() != 1 {
		t.Fatalf("same cookie created %d rounds", e.mgr.Len())
	}

	// a fresh client is a different player
	other := &http.Client{}
	res, err := other.Post(e.srv.URL+"/round/menu", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if e.mgr.Len() != 2 {
		t.Fatalf("rounds = %d want 2", e.mgr.Len())
	}
}

func TestSnapshotAndLeaveDoNotKeepLoops(t *testing.T) {
	e := newTestEnv(t, 73)

	_, snap := e.snapshot(t, "GET", "/round", nil)
	if snap.Phase != game.PhaseNotStarted {
		t.Fatalf("fresh snapshot = %+v", snap)
	}
	if e.mgr.Len() != 0 {
		t.Fatalf("reading the snapshot started %d rounds", e.mgr.Len())
	}

	e.snapshot(t, "POST", "/round/start", map[string]string{"difficulty": "medium"})
	_, snap = e.snapshot(t, "GET", "/round", nil)
	if snap.Phase != game.PhaseInProgress || snap.Difficulty != "medium" {
		t.Fatalf("snapshot after start = %+v", snap)
	}

	if code, _ := e.do(t, "DELETE", "/round", nil); code != 200 {
		t.Fatalf("leave = %d", code)
	}
	if e.mgr.Len() != 0 {
		t.Fatalf("rounds after leave = %d want 0", e.mgr.Len())
	}
	_, snap = e.snapshot(t, "GET", "/round", nil)
	if snap.Phase != game.PhaseNotStarted {
		t.Fatalf("snapshot after leave = %+v", snap)
	}
}

func TestMediumScenarioOverHTTP(t *testing.T) {
	e := newTestEnv(t, 73)

	code, snap := e.snapshot(t, "POST", "/round/start", map[string]string{"difficulty": "medium"})
	if code != 200 || snap.Phase != game.PhaseInProgress || snap.AttemptsRemaining != 8 {
		t.Fatalf("start = %d %+v", code, snap)
	}

	_, snap = e.snapshot(t, "POST", "/round/guess", map[string]string{"guess": "200"})
	if snap.Feedback != game.FeedbackInvalidInput || snap.AttemptsUsed != 0 {
		t.Fatalf("guess 200 = %+v", snap)
	}

	_, snap = e.snapshot(t, "POST", "/round/guess", map[string]int{"guess": 50})
	if snap.Feedback != game.FeedbackTooLow || snap.AttemptsUsed != 1 {
		t.Fatalf("guess 50 = %+v", snap)
	}
	if snap.Target != nil {
		t.Fatalf("target leaked mid-round")
	}

	for _, g := range []string{"90", "60", "80", "70", "75", "72", "74"} {
		_, snap = e.snapshot(t, "POST", "/round/guess", map[string]string{"guess": g})
	}
	if snap.Phase != game.PhaseLostAttempts || snap.Target == nil || *snap.Target != 73 {
		t.Fatalf("final = %+v", snap)
	}

	code, body := e.do(t, "POST", "/round/guess", map[string]string{"guess": "73"})
	if code != http.StatusConflict {
		t.Fatalf("guess after loss = %d want 409", code)
	}
	var conflict struct {
		Error    string        `json:"error"`
		Snapshot game.Snapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(body, &conflict); err != nil {
		t.Fatal(err)
	}
	if conflict.Error != "illegal_state" || conflict.Snapshot.Phase != game.PhaseLostAttempts {
		t.Fatalf("conflict body = %s", body)
	}
}

func TestWinAndBestScore(t *testing.T) {
	e := newTestEnv(t, 10)

	code, body := e.do(t, "GET", "/best", nil)
	if code != 200 || strings.TrimSpace(string(body)) != `{"attempts":null}` {
		t.Fatalf("empty best = %d %s", code, body)
	}

	e.snapshot(t, "POST", "/round/start", map[string]string{"difficulty": "easy"})
	e.snapshot(t, "POST", "/round/guess", map[string]string{"guess": "20"})
	_, snap := e.snapshot(t, "POST", "/round/guess", map[string]string{"guess": "10"})
	if snap.Phase != game.PhaseWon || !snap.NewBest || snap.Score == nil || snap.Score.Total != 90+240 {
		t.Fatalf("win = %+v score %+v", snap, snap.Score)
	}

	_, body = e.do(t, "GET", "/best", nil)
	if strings.TrimSpace(string(body)) != `{"attempts":2}` {
		t.Fatalf("best = %s", body)
	}

	// new game replays easy
	_, snap = e.snapshot(t, "POST", "/round/new", nil)
	if snap.Difficulty != "easy" || snap.Phase != game.PhaseInProgress {
		t.Fatalf("new game = %+v", snap)
	}

	if code, _ := e.do(t, "DELETE", "/best", nil); code != 200 {
		t.Fatalf("reset = %d", code)
	}
	_, body = e.do(t, "GET", "/best", nil)
	if strings.TrimSpace(string(body)) != `{"attempts":null}` {
		t.Fatalf("best after reset = %s", body)
	}

	_, snap = e.snapshot(t, "POST", "/round/menu", nil)
	if snap.Phase != game.PhaseNotStarted {
		t.Fatalf("menu = %+v", snap)
	}
}

func TestStartValidation(t *testing.T) {
	e := newTestEnv(t, 10)
	if code, body := e.do(t, "POST", "/round/start", map[string]string{"difficulty": "nightmare"}); code != 400 ||
		!strings.Contains(string(body), "unknown_difficulty") {
		t.Fatalf("unknown difficulty = %d %s", code, body)
	}

	req, _ := http.NewRequest("POST", e.srv.URL+"/round/start", strings.NewReader("{"))
	res, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != 400 {
		t.Fatalf("bad json = %d", res.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, 10)
	e.snapshot(t, "POST", "/round/start", map[string]string{"difficulty": "hard"})
	code, body := e.do(t, "GET", "/metrics", nil)
	if code != 200 || !strings.Contains(string(body), `numguess_rounds_started_total{difficulty="hard"} 1`) {
		t.Fatalf("metrics = %d\n%s", code, body)
	}
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t, 10)
	code, _ := e.do(t, "OPTIONS", "/round/start", nil)
	if code != http.StatusNoContent {
		t.Fatalf("preflight = %d", code)
	}
}

func TestWebSocketStream(t *testing.T) {
	e := newTestEnv(t, 10)
	e.do(t, "GET", "/round", nil) // obtain the session cookie

	u, _ := url.Parse(e.srv.URL)
	hdr := http.Header{}
	for _, c := range e.client.Jar.Cookies(u) {
		hdr.Add("Cookie", c.Name+"="+c.Value)
	}
	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/round/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	type envelope struct {
		Type string        `json:"type"`
		Data game.Snapshot `json:"data"`
	}
	var msg envelope
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "SNAPSHOT" || msg.Data.Phase != game.PhaseNotStarted {
		t.Fatalf("initial message = %+v", msg)
	}

	e.snapshot(t, "POST", "/round/start", map[string]string{"difficulty": "easy"})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "SNAPSHOT" || msg.Data.Phase != game.PhaseInProgress {
		t.Fatalf("after start = %+v", msg)
	}

	if err := conn.WriteJSON(map[string]string{"type": "PING"}); err != nil {
		t.Fatal(err)
	}
	var pong struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatal(err)
	}
	if pong.Type != "PONG" {
		t.Fatalf("reply = %q want PONG", pong.Type)
	}
}

func TestSessionsVerify(t *testing.T) {
	s := NewSessions("k1", testCookie, time.Hour, false)
	tok, _, err := s.Issue("player-1")
	if err != nil {
		t.Fatal(err)
	}
	if id, err := s.Verify(tok); err != nil || id != "player-1" {
		t.Fatalf("Verify = %q,%v", id, err)
	}
	if _, err := NewSessions("k2", testCookie, time.Hour, false).Verify(tok); err == nil {
		t.Fatalf("token verified under a different secret")
	}
	expired := NewSessions("k1", testCookie, -time.Minute, false)
	old, _, _ := expired.Issue("player-1")
	if _, err := s.Verify(old); err == nil {
		t.Fatalf("expired token accepted")
	}
}
