// Package web serves the feescope HTTP API: starting and inspecting
// analysis runs, managing schedules and sealed secrets, and streaming
// bus events over a websocket.
package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mtzanidakis/feescope/internal/blockspace"
	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/natsbus"
	"github.com/mtzanidakis/feescope/internal/state"
	"github.com/mtzanidakis/feescope/internal/store"
	"github.com/mtzanidakis/feescope/internal/vault"
	"github.com/nats-io/nats.go"
)

// Runner launches analysis runs and exposes the loaded blockspace data.
// Satisfied by workflow.Runner.
type Runner interface {
	Run(ctx context.Context, chains []string, timeframe string, source string) (state.Analysis, error)
	Start(chains []string, timeframe string, source string) string
	Data() *blockspace.Store
}

type Server struct {
	store     *store.Store
	bus       *natsbus.Bus
	nats      *natsbus.Client
	runner    Runner
	vault     *vault.Vault
	hub       *Hub
	sessions  *sessionStore
	cfg       config.WebConfig
	version   string
	startedAt time.Time
}

func NewServer(s *store.Store, bus *natsbus.Bus, runner Runner, cfg config.WebConfig, v *vault.Vault, version string) *Server {
	return &Server{
		store:     s,
		bus:       bus,
		runner:    runner,
		vault:     v,
		hub:       NewHub(),
		sessions:  newSessionStore(30 * 24 * time.Hour),
		cfg:       cfg,
		version:   version,
		startedAt: time.Now(),
	}
}

func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)
	s.subscribeEvents()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/check", s.handleAuthCheck)
	s.registerAPI(mux)
	mux.HandleFunc("/api/ws", s.handleWebSocket)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{Addr: addr, Handler: s.withMiddleware(mux)}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	slog.Info("web server listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if s.cfg.Auth != "" && strings.HasPrefix(r.URL.Path, "/api/") {
			// Login and auth check stay reachable without a session.
			if r.URL.Path == "/api/login" || r.URL.Path == "/api/auth/check" {
				next.ServeHTTP(w, r)
				return
			}
			if !s.authenticate(w, r) {
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate accepts a live session cookie or Basic auth with the
// configured password. Basic auth covers feectl and other API clients.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) bool {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if s.sessions.touch(cookie.Value) {
			s.setSessionCookie(w, cookie.Value)
			return true
		}
	}

	if _, pass, ok := r.BasicAuth(); ok && pass == s.cfg.Auth {
		return true
	}

	http.Error(w, "Unauthorized", http.StatusUnauthorized)
	return false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Auth == "" {
		jsonResponse(w, map[string]string{"status": "ok"})
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Password != s.cfg.Auth {
		jsonError(w, "invalid password", http.StatusUnauthorized)
		return
	}

	token, err := s.sessions.issue()
	if err != nil {
		jsonError(w, "session creation failed", http.StatusInternalServerError)
		return
	}
	s.setSessionCookie(w, token)
	jsonResponse(w, map[string]string{"status": "ok"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.revoke(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	jsonResponse(w, map[string]string{"status": "ok"})
}

func (s *Server) handleAuthCheck(w http.ResponseWriter, r *http.Request) {
	// No auth configured means clients skip the login step.
	if s.cfg.Auth == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if s.sessions.touch(cookie.Value) {
			s.setSessionCookie(w, cookie.Value)
			jsonResponse(w, map[string]string{"status": "ok"})
			return
		}
	}

	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

const sessionCookieName = "session"

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// sessionStore holds login sessions in memory. Sessions do not survive
// a restart; API clients use Basic auth instead.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token to expiry
	maxAge time.Duration
}

func newSessionStore(maxAge time.Duration) *sessionStore {
	return &sessionStore{tokens: make(map[string]time.Time), maxAge: maxAge}
}

func (ss *sessionStore) issue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	ss.mu.Lock()
	ss.tokens[token] = time.Now().Add(ss.maxAge)
	ss.mu.Unlock()
	return token, nil
}

// touch reports whether the token is live and extends its expiry.
func (ss *sessionStore) touch(token string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	expiry, ok := ss.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(ss.tokens, token)
		return false
	}
	ss.tokens[token] = time.Now().Add(ss.maxAge)
	return true
}

func (ss *sessionStore) revoke(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.tokens, token)
}

func (s *Server) subscribeEvents() {
	if s.bus == nil {
		return
	}
	client, err := natsbus.NewClient(s.bus)
	if err != nil {
		slog.Error("web server nats client failed", "error", err)
		return
	}
	s.nats = client

	// Every bus event fans out to websocket clients with its subject
	// as the event type.
	_, _ = client.Subscribe(natsbus.TopicEventsAll, func(msg *nats.Msg) {
		var payload any
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			slog.Warn("invalid bus event payload", "subject", msg.Subject, "error", err)
			return
		}
		s.hub.Broadcast(Event{Type: msg.Subject, Payload: payload})
	})
}
