package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/live"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// liveMessage is one snapshot on the /api/live socket.
type liveMessage struct {
	Stream string `json:"stream"`
	Data   any    `json:"data"`
}

// parseStreams reads ?streams=agents,logos. Empty selects every stream.
func parseStreams(raw string) (map[string]bool, bool) {
	all := map[string]bool{live.StreamAgents: true, live.StreamLogos: true, live.StreamSettings: true}
	if strings.TrimSpace(raw) == "" {
		return all, true
	}

	out := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if !all[name] {
			return nil, false
		}
		out[name] = true
	}
	return out, true
}

// handleLive upgrades to a websocket and streams snapshots of the
// requested feeds. Each feed sends its current snapshot first. Closing the
// socket ends every subscription.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	streams, ok := parseStreams(r.URL.Query().Get("streams"))
	if !ok {
		apiError(w, "unknown stream", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("upgrading live socket", zap.Error(err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			zap.L().Debug("closing live socket", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan liveMessage)
	hub := s.deps.Admin.Hub()
	if streams[live.StreamAgents] {
		go forward(ctx, hub.Agents, out)
	}
	if streams[live.StreamLogos] {
		go forward(ctx, hub.Logos, out)
	}
	if streams[live.StreamSettings] {
		go forward(ctx, hub.Settings, out)
	}

	go readUntilClosed(conn, cancel)

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			if err := conn.SetWriteDeadline(time.Now().Add(liveWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				zap.L().Debug("writing live message", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

// forward relays a feed to out until ctx ends, then unsubscribes.
func forward[T any](ctx context.Context, f *live.Feed[T], out chan<- liveMessage) {
	sub := f.Subscribe()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-sub.C():
			if !ok {
				return
			}
			select {
			case out <- liveMessage{Stream: f.Name(), Data: v}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// readUntilClosed drains client frames so control messages are handled,
// and cancels once the peer goes away.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	if err := conn.SetReadDeadline(time.Now().Add(livePongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
