package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/infra/realtime"
	"github.com/trabamex/mir-bff-go/internal/service"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// incidentStreamHandler upgrades to a websocket and pushes every new message
// of the incident thread as a JSON frame. Clients only read; anything they
// send besides control frames is discarded.
func incidentStreamHandler(svc *service.IncidentService, hub *realtime.Hub, allowedOrigins []string, logger *zap.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		incidentID, err := pathID(r, "incidentId", "incident")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		actor := ActorFromContext(ctx)

		if err := svc.Authorize(ctx, actor, incidentID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("stream: upgrade failed", zap.String("incident_id", incidentID), zap.Error(err))
			return
		}
		defer conn.Close()

		sub := hub.Subscribe(incidentID)
		defer sub.Close()

		log := logger.With(zap.String("incident_id", incidentID), zap.String("user_id", actor.UserID))
		log.Debug("stream: subscribed", zap.Int("subscribers", hub.Subscribers(incidentID)))

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			conn.SetReadLimit(512)
			conn.SetReadDeadline(time.Now().Add(streamPongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(streamPongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(streamPingPeriod)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-sub.C:
				conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if !ok {
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					log.Debug("stream: write failed", zap.Error(err))
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				log.Debug("stream: client left")
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browsers from an allowed origin. "*" allows any.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[u.Scheme+"://"+u.Host]
	}
}
