package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arena-server/internal/store"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	qrSize             = 256
	defaultMatchLimit  = 20
	maxMatchLimit      = 200
	matchQueryDeadline = 5 * time.Second
)

func newUpgrader(allowed []string) *websocket.Upgrader {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[strings.TrimRight(o, "/")] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // Non-browser clients don't send Origin
			}
			if origins[origin] {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return u.Host == r.Host
		},
	}
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	upgrader := newUpgrader(hub.cfg.AllowedOrigins)

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}
		id, err := hub.verifier.Verify(bearerToken(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Debug("upgrade error", zap.Error(err))
			return
		}

		hub.TrackConnect(ip)
		client := NewClient(hub, conn, id, ip)
		hub.register(client)

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, hub.sessions.List())
	})

	mux.HandleFunc("GET /sessions/{id}/qr", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := hub.sessions.Session(id); !ok {
			http.NotFound(w, r)
			return
		}
		png, err := qrcode.Encode(joinLink(hub.cfg.PublicURL, id), qrcode.Medium, qrSize)
		if err != nil {
			hub.log.Error("qr encode failed", zap.String("session", id), zap.Error(err))
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	mux.HandleFunc("GET /presets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, hub.presets.Names())
	})

	mux.HandleFunc("GET /matches", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultMatchLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxMatchLimit)
		}
		ctx, cancel := context.WithTimeout(r.Context(), matchQueryDeadline)
		defer cancel()
		recs, err := hub.matches.Recent(ctx, limit)
		if err != nil {
			hub.log.Error("recent matches", zap.Error(err))
			http.Error(w, "match history unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, matchViews(recs))
	})

	return mux
}

// joinLink is what the QR code encodes
func joinLink(base, sid string) string {
	return strings.TrimRight(base, "/") + "/join/" + sid
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(v)
}

type playerView struct {
	PlayerID uint32 `json:"player_id"`
	ClientID string `json:"client_id"`
	Kills    int    `json:"kills"`
	Alive    bool   `json:"alive"`
	Winner   bool   `json:"winner"`
}

type matchView struct {
	SessionID string       `json:"sid"`
	Name      string       `json:"name"`
	Mode      string       `json:"mode"`
	Result    string       `json:"result"`
	Reason    string       `json:"reason,omitempty"`
	Ticks     uint64       `json:"ticks"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Players   []playerView `json:"players"`
}

func matchViews(recs []store.MatchRecord) []matchView {
	out := make([]matchView, 0, len(recs))
	for _, rec := range recs {
		v := matchView{
			SessionID: rec.SessionID,
			Name:      rec.Name,
			Mode:      rec.Mode,
			Result:    rec.Result,
			Reason:    rec.Reason,
			Ticks:     rec.Ticks,
			StartedAt: rec.StartedAt,
			EndedAt:   rec.EndedAt,
			Players:   make([]playerView, 0, len(rec.Players)),
		}
		for _, p := range rec.Players {
			v.Players = append(v.Players, playerView(p))
		}
		out = append(out, v)
	}
	return out
}
