package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithField("component", "http").WithError(err).Warn("encode response")
	}
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	clientDir := hub.cfg.ClientDir

	if clientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(clientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			if r.URL.Path == "/" {
				http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		}))
	}

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.WithError(err).Warn("upgrade")
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		target := hub.cfg.PublicURL
		if target == "" {
			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}
			target = scheme + "://" + r.Host + "/"
		}
		png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	mux.HandleFunc("/api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
			return
		}
		entries, err := hub.db.GetLeaderboard(r.URL.Query().Get("by"), leaderboardSize)
		if err != nil {
			hub.log.WithError(err).Error("leaderboard")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, entries)
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		report := StatsReport{
			Online: hub.game.PlayerCount(),
			Phase:  hub.game.Phase(),
			Events: map[string]int{},
		}
		if a := hub.analytics; a != nil {
			var err error
			if report.DAU, err = a.DAUCount(); err != nil {
				hub.log.WithError(err).Warn("dau")
			}
			if ev, err := a.EventCounts(7); err == nil {
				report.Events = ev
			}
			report.Matches, _ = a.MatchStats(7)
			report.Purchases, _ = a.PopularPurchases(10)
		}
		writeJSON(w, report)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"ok": true, "phase": hub.game.Phase(), "conns": hub.TotalConns()})
	})

	return mux
}
