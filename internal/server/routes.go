package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/Warpcall/internal/relay"
	"github.com/BioHazard786/Warpcall/internal/utils"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,

	// Participants are not authenticated, so the origin is not either.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewRouter returns the relay's HTTP surface: the websocket endpoint plus
// health and stats endpoints.
func NewRouter(hub *relay.Hub, opts relay.Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(requestLogger)
		r.Get("/health", healthCheckHandler)
		r.Get("/stats", statsHandler(hub))
		r.Get("/sessions/{id}", membersHandler(hub))
	})

	r.Get("/ws", ServeWs(hub, opts))

	return r
}

// Health Check endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling relay is healthy."))
}

func statsHandler(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(hub.Stats()); err != nil {
			log.Error().Err(err).Str("module", "server").Msg("Failed to encode stats")
		}
	}
}

// membersHandler lists the identities in one session. Unknown sessions have
// no members.
func membersHandler(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		members := hub.Members(id)
		if members == nil {
			members = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"session": id, "members": members}); err != nil {
			log.Error().Err(err).Str("module", "server").Msg("Failed to encode members")
		}
	}
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// The caller's identity comes from the "user" query parameter and is
// required; requests without one are rejected before the upgrade.
func ServeWs(hub *relay.Hub, opts relay.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := r.URL.Query().Get("user")
		if err := utils.ValidateIdentity(identity); err != nil {
			log.Warn().Str("module", "server").Str("remote", r.RemoteAddr).Err(err).Msg("Rejected connection")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Str("module", "server").Err(err).Msg("Failed to upgrade connection")
			return
		}

		client := relay.NewClient(hub, conn, identity, opts)
		if !hub.Register(client) {
			conn.Close()
			return
		}

		// These methods will handle the client's lifecycle
		go client.WritePump()
		go client.ReadPump()
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Debug().
				Str("module", "server").
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("HTTP request")
		}()
		next.ServeHTTP(ww, r)
	})
}
