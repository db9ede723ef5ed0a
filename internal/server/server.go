package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexus-chat/internal/catalog"
	"nexus-chat/internal/chat"
	"nexus-chat/internal/config"
	"nexus-chat/internal/db"
	"nexus-chat/internal/store"
	"nexus-chat/internal/tfidf"
	"nexus-chat/internal/types"
)

const sweepInterval = time.Minute

type Server struct {
	router    *chi.Mux
	cfg       config.Config
	log       *zap.Logger
	backend   *tfidf.Client
	messages  *catalog.Store
	sessions  *store.Sessions
	database  *db.DB
	exchanges *store.ExchangeLog
}

func NewServer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	messages := catalog.NewStore(catalog.Default())
	if cfg.MessagesFile != "" {
		m, err := catalog.Load(cfg.MessagesFile)
		switch {
		case err == nil:
			messages.Set(m)
		case errors.Is(err, os.ErrNotExist):
			log.Info("messages file not found; using built-in copy", zap.String("path", cfg.MessagesFile))
		default:
			return nil, fmt.Errorf("failed to load messages: %w", err)
		}
	}

	// Exchange log is optional
	var database *db.DB
	var exchanges *store.ExchangeLog
	if cfg.DatabaseURL != "" {
		var err error
		database, err = db.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info("database connection established")
		if err := database.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		exchanges = store.NewExchangeLog(database)
	} else {
		log.Info("DB_URL not provided; exchanges are not recorded")
	}

	s := &Server{
		router:    r,
		cfg:       cfg,
		log:       log,
		backend:   tfidf.NewClient(cfg.BackendURL, nil),
		messages:  messages,
		database:  database,
		exchanges: exchanges,
	}
	s.sessions = store.NewSessions(s.newController, cfg.SessionTTL)
	s.routes()
	log.Info("search backend configured", zap.String("url", s.backend.BaseURL()))
	return s, nil
}

func (s *Server) newController(sessionID string) *chat.Controller {
	opts := []chat.Option{
		chat.WithContextWindow(s.cfg.ContextWindow),
		chat.WithResultLimit(s.cfg.ResultLimit),
		chat.WithMessages(s.messages),
		chat.WithLogger(s.log.With(zap.String("session", sessionID))),
	}
	if s.exchanges != nil {
		opts = append(opts, chat.WithRecorder(s.exchanges.ForSession(sessionID)))
	}
	return chat.New(s.backend, opts...)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Route("/api/chat", func(r chi.Router) {
		r.Get("/", s.handleState)
		r.Post("/messages", s.handleSubmit)
		r.Post("/clear", s.handleClear)
		r.Post("/reset", s.handleReset)
		r.Delete("/error", s.handleDismissError)
		r.Put("/draft", s.handleDraft)
	})
}

func (s *Server) Router() http.Handler { return s.router }

// Background sweeps idle sessions and, when enabled, reloads the messages
// file on change. It returns when ctx is done.
func (s *Server) Background(ctx context.Context) {
	if s.cfg.MessagesWatch && s.cfg.MessagesFile != "" {
		w, err := catalog.NewWatcher(s.cfg.MessagesFile, s.messages, s.log)
		if err != nil {
			s.log.Warn("messages watcher unavailable", zap.Error(err))
		} else {
			defer w.Stop()
			go func() {
				if err := w.Run(ctx); err != nil {
					s.log.Warn("messages watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.log.Info("evicted idle sessions", zap.Int("count", n), zap.Int("remaining", s.sessions.Len()))
			}
		}
	}
}

func (s *Server) Close() error {
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := types.HealthResponse{Status: "ok", Sessions: s.sessions.Len()}
	if h, err := s.backend.Health(ctx); err != nil {
		resp.BackendError = err.Error()
	} else {
		resp.Backend = &types.BackendHealth{Status: h.Status, Chunks: h.Chunks}
	}
	if s.database != nil {
		if err := s.database.HealthCheck(ctx); err != nil {
			resp.Status = "degraded"
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleState does not register a session; a session that has never
// changed is shown as a fresh transcript.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	ctrl, ok := s.sessions.Lookup(sid)
	if !ok {
		ctrl = s.newController(sid)
	}
	s.writeState(w, sid, ctrl)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := s.getOrCreateSessionID(r, w)
	ctrl := s.sessions.Get(sid)

	accepted := ctrl.Submit(r.Context(), req.Message)
	s.writeJSON(w, http.StatusOK, types.SubmitResponse{
		Accepted: accepted,
		State:    toChatState(sid, ctrl.State()),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	ctrl := s.sessions.Get(sid)
	ctrl.Clear()
	s.writeState(w, sid, ctrl)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	ctrl := s.sessions.Get(sid)
	ctrl.Reset()
	s.writeState(w, sid, ctrl)
}

func (s *Server) handleDismissError(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	ctrl := s.sessions.Get(sid)
	ctrl.DismissError()
	s.writeState(w, sid, ctrl)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req types.DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := s.getOrCreateSessionID(r, w)
	ctrl := s.sessions.Get(sid)
	ctrl.SetDraft(req.Draft)
	s.writeState(w, sid, ctrl)
}

func (s *Server) writeState(w http.ResponseWriter, sid string, ctrl *chat.Controller) {
	s.writeJSON(w, http.StatusOK, toChatState(sid, ctrl.State()))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func toChatState(sid string, st chat.State) types.ChatState {
	out := types.ChatState{
		SessionID: sid,
		Turns:     make([]types.ChatTurn, len(st.Turns)),
		Busy:      st.Busy,
		Error:     st.Error,
		Draft:     st.Draft,
	}
	for i, t := range st.Turns {
		turn := types.ChatTurn{
			ID:              t.ID,
			Text:            t.Text,
			IsFromAssistant: t.IsFromAssistant,
			CreatedAt:       t.Timestamp(),
			UsedContext:     t.UsedContext,
		}
		for _, r := range t.RankedResults {
			turn.RankedResults = append(turn.RankedResults, types.RankedResult{
				SourceID: r.SourceID,
				ChunkID:  r.ChunkID,
				Text:     r.Text,
				Score:    r.Score,
			})
		}
		out.Turns[i] = turn
	}
	return out
}

const sessionPrefix = "s_"

func newSessionID() string {
	return sessionPrefix + uuid.NewString()
}

// validSessionID reports whether sid has the shape newSessionID produces.
func validSessionID(sid string) bool {
	rest, ok := strings.CutPrefix(sid, sessionPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil && len(rest) == 36
}

// getSessionID retrieves the session ID from cookie, header or query parameter
func getSessionID(r *http.Request) string {
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

func (s *Server) getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := getSessionID(r)
	if sid != "" && !validSessionID(sid) {
		s.log.Debug("ignoring malformed session id", zap.String("path", r.URL.Path))
		sid = ""
	}
	if sid == "" {
		sid = newSessionID()
		s.log.Debug("creating new session", zap.String("session", sid), zap.String("path", r.URL.Path))
	}
	SetSessionCookie(w, r, sid, s.cfg.SessionTTL)
	w.Header().Set("X-Session-Id", sid)
	return sid
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}
