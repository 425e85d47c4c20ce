// Package http serves the agents over HTTP: the generic chat endpoints plus
// deep research, sidekick sessions, the activity assistant and metrics.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/llm"
	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/observability/prom"
	"github.com/KamdynS/agent-contrib/research"
	"github.com/KamdynS/agent-contrib/workflow"
)

// Researcher streams research status updates and the final report.
type Researcher interface {
	Run(ctx context.Context, query string) <-chan string
}

// QuestionAsker proposes clarifying questions for a research query.
type QuestionAsker interface {
	Questions(ctx context.Context, query string) (research.ClarifyingQuestions, error)
}

// Sidekick is one checkpointed worker/evaluator conversation.
type Sidekick interface {
	RunSuperstep(ctx context.Context, message, criteria string, history []llm.Message) ([]llm.Message, error)
	Reset()
}

// Chatter answers one turn given prior history.
type Chatter interface {
	Chat(ctx context.Context, history []llm.Message, message string) (string, error)
}

// Server wraps the agents with HTTP endpoints
type Server struct {
	agent     core.Agent
	config    Config
	server    *http.Server
	router    *mux.Router
	research  Researcher
	clarifier QuestionAsker
	sidekicks *sidekickPool
	activity  Chatter
	metrics   *prom.Exporter
	logger    *zerolog.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableCORS   bool
}

// Option enables optional endpoints.
type Option func(*Server)

// WithResearch serves POST /research and, when c is set, POST /research/clarify.
func WithResearch(r Researcher, c QuestionAsker) Option {
	return func(s *Server) { s.research, s.clarifier = r, c }
}

// WithSidekicks serves the sidekick endpoints. newSidekick is called once per
// session id.
func WithSidekicks(newSidekick func() (Sidekick, error)) Option {
	return func(s *Server) { s.sidekicks = newSidekickPool(newSidekick) }
}

// WithActivity serves POST /activity/chat.
func WithActivity(a Chatter) Option {
	return func(s *Server) { s.activity = a }
}

// WithMetrics counts requests into e and serves it on GET /metrics.
func WithMetrics(e *prom.Exporter) Option {
	return func(s *Server) { s.metrics = e }
}

// WithLogger sets the request logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new HTTP server. agent may be nil, in which case the
// chat endpoints are not mounted.
func NewServer(agent core.Agent, config Config, opts ...Option) *Server {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Second
	}

	s := &Server{
		agent:  agent,
		config: config,
	}
	for _, o := range opts {
		o(s)
	}

	s.router = mux.NewRouter()
	s.setupRoutes(s.router)

	var h http.Handler = s.router
	if config.EnableCORS {
		h = s.corsMiddleware(h)
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      h,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.server.Handler }

func (s *Server) setupRoutes(r *mux.Router) {
	r.Use(s.observe)
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	if s.agent != nil {
		r.HandleFunc("/chat", s.chatHandler)
		r.HandleFunc("/chat/stream", s.streamHandler)
	}
	if s.research != nil {
		r.HandleFunc("/research", s.researchHandler).Methods(http.MethodPost)
	}
	if s.clarifier != nil {
		r.HandleFunc("/research/clarify", s.clarifyHandler).Methods(http.MethodPost)
	}
	if s.sidekicks != nil {
		r.HandleFunc("/sidekick/{id}/chat", s.sidekickChatHandler).Methods(http.MethodPost)
		r.HandleFunc("/sidekick/{id}/reset", s.sidekickResetHandler).Methods(http.MethodPost)
	}
	if s.activity != nil {
		r.HandleFunc("/activity/chat", s.activityHandler).Methods(http.MethodPost)
	}
	if s.metrics != nil {
		r.Handle("/metrics", prom.Handler(s.metrics)).Methods(http.MethodGet)
	}
	r.HandleFunc("/debug/workflows", s.workflowsHandler).Methods(http.MethodGet)
	r.HandleFunc("/debug/workflows/mermaid", s.mermaidHandler).Methods(http.MethodGet)
}

// observe tags each request with an id, wraps it in a span and records it
// in the global metrics and, when set, the exporter.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := obs.ExtractHTTPContext(r.Context(), r)
		obs.InjectHTTPHeaders(w, ctx)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		span, ctx := obs.TracerImpl.StartSpan(ctx, "http.request")
		span.SetAttribute("http.route", route)
		span.SetAttribute("http.method", r.Method)
		next.ServeHTTP(w, r.WithContext(ctx))
		span.End()

		labels := map[string]string{"route": route, "method": r.Method}
		took := time.Since(start)
		obs.MetricsImpl.IncrementRequests(labels)
		obs.MetricsImpl.RecordLatency(took, labels)
		if s.metrics != nil {
			s.metrics.IncrementRequests(labels)
			s.metrics.RecordLatency(took, labels)
		}
		id, _ := obs.RequestIDFromContext(ctx)
		log := s.log()
		log.Debug().Str("request_id", id).Str("route", route).Dur("took", took).Msg("request")
	})
}

func (s *Server) log() zerolog.Logger { return obs.LoggerOr(s.logger, "http") }

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Message   string            `json:"message"`
	SessionID string            `json:"session_id,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// ChatResponse represents a chat response
type ChatResponse struct {
	Message   string            `json:"message"`
	SessionID string            `json:"session_id,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// healthHandler provides a health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// chatHandler handles chat requests
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Message == "" {
		s.writeError(w, "Message is required", http.StatusBadRequest)
		return
	}

	input := core.Message{
		Role:    "user",
		Content: req.Message,
		Meta:    req.Meta,
	}

	response, err := s.agent.Run(r.Context(), input)
	if err != nil {
		log := s.log()
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("agent error")
		s.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Message:   response.Content,
		SessionID: req.SessionID,
		Meta:      response.Meta,
	})
}

// streamHandler handles streaming chat requests
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	flusher, ok := startSSE(w)
	if !ok {
		s.writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	input := core.Message{
		Role:    "user",
		Content: req.Message,
		Meta:    req.Meta,
	}

	output := make(chan core.Message)
	go func() {
		if err := s.agent.RunStream(r.Context(), input, output); err != nil {
			log := s.log()
			log.Error().Err(err).Str("session_id", req.SessionID).Msg("streaming error")
		}
	}()

	for {
		select {
		case message, ok := <-output:
			if !ok {
				fmt.Fprintf(w, "event: done\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, _ := json.Marshal(ChatResponse{
				Message:   message.Content,
				SessionID: req.SessionID,
				Meta:      message.Meta,
			})
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()

		case <-r.Context().Done():
			// Best effort: the client may already be gone.
			fmt.Fprintf(w, "event: done\ndata: {}\n\n")
			flusher.Flush()
			return
		}
	}
}

// ResearchRequest starts a research run or asks for clarifying questions.
type ResearchRequest struct {
	Query string `json:"query"`
}

// researchHandler streams each status chunk as one SSE "status" event whose
// data is the JSON encoded string.
func (s *Server) researchHandler(w http.ResponseWriter, r *http.Request) {
	var req ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		s.writeError(w, "Query is required", http.StatusBadRequest)
		return
	}
	flusher, ok := startSSE(w)
	if !ok {
		s.writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	for chunk := range s.research.Run(r.Context(), req.Query) {
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
		flusher.Flush()
	}
	fmt.Fprintf(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
}

// ClarifyResponse is the reply of /research/clarify.
type ClarifyResponse struct {
	research.ClarifyingQuestions
	NeedsClarification bool   `json:"needs_clarification"`
	Display            string `json:"display"`
}

func (s *Server) clarifyHandler(w http.ResponseWriter, r *http.Request) {
	var req ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.Query) < 3 {
		s.writeError(w, "Please enter a research query first.", http.StatusBadRequest)
		return
	}
	q, err := s.clarifier.Questions(r.Context(), req.Query)
	if err != nil {
		log := s.log()
		log.Error().Err(err).Msg("clarifier failed")
		s.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	resp := ClarifyResponse{ClarifyingQuestions: q, NeedsClarification: research.NeedsClarification(q)}
	if resp.NeedsClarification {
		resp.Display = research.FormatQuestions(q)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SidekickRequest is one sidekick turn.
type SidekickRequest struct {
	Message         string `json:"message"`
	SuccessCriteria string `json:"success_criteria,omitempty"`
}

// SidekickResponse carries the whole visible history after the turn.
type SidekickResponse struct {
	SessionID string        `json:"session_id"`
	History   []llm.Message `json:"history"`
	Error     string        `json:"error,omitempty"`
}

func (s *Server) sidekickChatHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req SidekickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		s.writeError(w, "Message is required", http.StatusBadRequest)
		return
	}
	history, err := s.sidekicks.turn(r.Context(), id, req.Message, req.SuccessCriteria)
	if err != nil {
		log := s.log()
		log.Error().Err(err).Str("session_id", id).Msg("sidekick turn failed")
		s.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, SidekickResponse{SessionID: id, History: history})
}

func (s *Server) sidekickResetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.sidekicks.reset(id)
	writeJSON(w, http.StatusOK, SidekickResponse{SessionID: id, History: []llm.Message{}})
}

// ActivityRequest is one activity assistant turn with the prior history.
type ActivityRequest struct {
	Message string        `json:"message"`
	History []llm.Message `json:"history,omitempty"`
}

func (s *Server) activityHandler(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		s.writeError(w, "Message is required", http.StatusBadRequest)
		return
	}
	reply, err := s.activity.Chat(r.Context(), req.History, req.Message)
	if err != nil {
		log := s.log()
		log.Error().Err(err).Msg("activity chat failed")
		s.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Message: reply})
}

func (s *Server) workflowsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"workflows": workflow.List()})
}

func (s *Server) mermaidHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g, ok := workflow.Get(q.Get("name"))
	if !ok {
		s.writeError(w, "Unknown workflow", http.StatusNotFound)
		return
	}
	var opts []workflow.MermaidOption
	if d := q.Get("dir"); d != "" {
		opts = append(opts, workflow.WithDirection(d))
	}
	if conds, _ := strconv.ParseBool(q.Get("conds")); conds {
		opts = append(opts, workflow.WithConditionIndicators(true))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(g.Mermaid(opts...)))
}

func startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, ChatResponse{Error: message})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	log := s.log()
	errChan := make(chan error, 1)
	go func() {
		log.Info().Int("port", s.config.Port).Msg("http server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
