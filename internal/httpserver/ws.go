package httpserver

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// wsMessage is the envelope for both directions.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	msgSnapshot = "SNAPSHOT"
	msgPing     = "PING"
	msgPong     = "PONG"
)

func (s *Server) upgrader() *websocket.Upgrader {
	allowed := s.deps.ClientOrigin
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == allowed {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// handleWS streams the player's snapshots. The current snapshot is sent on
// connect, then one per state change (ticks included). Clients may send
// {"type":"PING"} and get {"type":"PONG"} back.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	playerID := PlayerID(r.Context())
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	round := s.deps.Manager.Get(playerID)
	snaps, cancel := round.Subscribe()
	defer cancel()

	pongs := make(chan struct{}, 1)
	readerDone := make(chan struct{})
	go readWS(conn, pongs, readerDone)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	send := func(m wsMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(m); err != nil {
			log.Debug().Err(err).Str("player", playerID).Msg("websocket write")
			return false
		}
		return true
	}

	if !send(wsMessage{Type: msgSnapshot, Data: round.Snapshot()}) {
		return
	}
	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "round closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			if !send(wsMessage{Type: msgSnapshot, Data: snap}) {
				return
			}
		case <-pongs:
			if !send(wsMessage{Type: msgPong, Data: map[string]int64{"timestamp": time.Now().Unix()}}) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-readerDone:
			return
		}
	}
}

// readWS consumes client messages until the connection fails. Writes stay
// on the handler goroutine; the reader only signals.
func readWS(conn *websocket.Conn, pongs chan<- struct{}, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if msg.Type == msgPing {
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}
}
