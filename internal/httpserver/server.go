package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/shardlabs/shardfeed/internal/config"
	"github.com/shardlabs/shardfeed/internal/domain"
)

// viewerHeader carries the authenticated username resolved by the upstream
// identity layer. The engine treats it as an opaque trusted string; no token
// validation happens here.
const viewerHeader = "X-Viewer"

// Server is the thin HTTP wrapper around the graph engine. Handlers only
// parse parameters, call the engine, and translate errors to status codes.
type Server struct {
	cfg        *config.Config
	engine     *domain.Service
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates the HTTP server. stream may be nil to disable the
// websocket event endpoint.
func NewServer(cfg *config.Config, engine *domain.Service, stream http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /v1/users/{username}", s.handleGetUser)
	mux.HandleFunc("GET /v1/shards/{name}", s.handleGetShard)
	mux.HandleFunc("GET /v1/posts/{id}", s.handleGetPost)

	mux.HandleFunc("GET /v1/users", s.handleList(domain.LabelUser))
	mux.HandleFunc("GET /v1/shards", s.handleList(domain.LabelShard))
	mux.HandleFunc("GET /v1/posts", s.handleList(domain.LabelPost))

	mux.HandleFunc("GET /v1/feed", s.handleFeed)
	mux.HandleFunc("GET /v1/shards/{name}/followers", s.handleShardFollowers)
	mux.HandleFunc("GET /v1/shards/{name}/inherits", s.handleShardInherits)

	mux.HandleFunc("POST /v1/users", s.handleCreateUser)
	mux.HandleFunc("POST /v1/shards", s.handleCreateShard)
	mux.HandleFunc("POST /v1/posts", s.handleCreatePost)
	mux.HandleFunc("POST /v1/follows", s.handleFollow)
	mux.HandleFunc("DELETE /v1/follows", s.handleUnfollow)
	mux.HandleFunc("POST /v1/upvotes", s.handleUpvote)
	mux.HandleFunc("DELETE /v1/upvotes", s.handleUnupvote)
	mux.HandleFunc("POST /v1/inherits", s.handleAddInheritance)
	mux.HandleFunc("DELETE /v1/inherits", s.handleRemoveInheritance)

	if stream != nil {
		mux.Handle("GET /v1/stream", stream)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetUserView(r.Context(), r.PathValue("username"), viewer(r))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetShard(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetShardView(r.Context(), r.PathValue("name"), viewer(r))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetPostView(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleList(label domain.Label) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order := domain.Order(r.URL.Query().Get("order"))
		if order == "" {
			order = domain.OrderNewest
		}

		first, count, err := pageParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
			return
		}

		views, err := s.engine.ListRanked(r.Context(), label, order, first, count)
		if err != nil {
			s.writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entities": views})
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	username := viewer(r)
	if username == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "feed requires an authenticated viewer")
		return
	}

	first, count, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	low, high, err := domain.PageRange(first, count)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	posts, err := s.engine.AssembleRankedFeed(r.Context(), username)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	low, high = domain.ClampRange(len(posts), low, high)
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts[low:high]})
}

func (s *Server) handleShardFollowers(w http.ResponseWriter, r *http.Request) {
	s.handleClosure(w, r, domain.Upward)
}

func (s *Server) handleShardInherits(w http.ResponseWriter, r *http.Request) {
	s.handleClosure(w, r, domain.Downward)
}

func (s *Server) handleClosure(w http.ResponseWriter, r *http.Request, dir domain.Direction) {
	ref := domain.ShardRef(r.PathValue("name"))
	members, err := s.engine.GetClosure(r.Context(), ref, dir)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	entities := make([]map[string]string, 0, len(members))
	for member := range members {
		entities = append(entities, map[string]string{
			"label": string(member.Label),
			"key":   member.Key,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := s.engine.CreateUser(r.Context(), req.Username, req.DisplayName)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleCreateShard(w http.ResponseWriter, r *http.Request) {
	owner := viewer(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "shard creation requires an authenticated viewer")
		return
	}
	var req struct {
		Name         string `json:"name"`
		FriendlyName string `json:"friendlyName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := s.engine.CreateShard(r.Context(), owner, req.Name, req.FriendlyName)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	author := viewer(r)
	if author == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "posting requires an authenticated viewer")
		return
	}
	var req struct {
		Title       string `json:"title"`
		Filename    string `json:"filename"`
		ContentURL  string `json:"contentUrl"`
		Body        string `json:"body"`
		Shard       string `json:"shard"`
		ProfileUser string `json:"profileUser"`
		ParentPost  string `json:"parentPost"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := s.engine.CreatePost(r.Context(), author, domain.NewPost{
		Title:       req.Title,
		Filename:    req.Filename,
		ContentURL:  req.ContentURL,
		Body:        req.Body,
		ShardName:   req.Shard,
		ProfileUser: req.ProfileUser,
		ParentPost:  req.ParentPost,
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// followTarget is the request body for follow and inheritance endpoints:
// exactly one of user or shard names the target entity.
type followTarget struct {
	User  string `json:"user"`
	Shard string `json:"shard"`
}

func (t followTarget) ref() (domain.EntityRef, error) {
	switch {
	case t.User != "" && t.Shard == "":
		return domain.UserRef(t.User), nil
	case t.Shard != "" && t.User == "":
		return domain.ShardRef(t.Shard), nil
	default:
		return domain.EntityRef{}, fmt.Errorf("exactly one of user or shard is required")
	}
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	s.handleEdgeWrite(w, r, func(ctx context.Context, actor string, target domain.EntityRef) error {
		return s.engine.Follow(ctx, actor, target)
	})
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	s.handleEdgeWrite(w, r, func(ctx context.Context, actor string, target domain.EntityRef) error {
		return s.engine.Unfollow(ctx, actor, target)
	})
}

func (s *Server) handleEdgeWrite(w http.ResponseWriter, r *http.Request, op func(context.Context, string, domain.EntityRef) error) {
	actor := viewer(r)
	if actor == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "an authenticated viewer is required")
		return
	}
	var req followTarget
	if !decodeBody(w, r, &req) {
		return
	}
	target, err := req.ref()
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	if err := op(r.Context(), actor, target); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpvote(w http.ResponseWriter, r *http.Request) {
	s.handlePostWrite(w, r, s.engine.Upvote)
}

func (s *Server) handleUnupvote(w http.ResponseWriter, r *http.Request) {
	s.handlePostWrite(w, r, s.engine.Unupvote)
}

func (s *Server) handlePostWrite(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) error) {
	actor := viewer(r)
	if actor == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "an authenticated viewer is required")
		return
	}
	var req struct {
		PostID string `json:"postId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := op(r.Context(), actor, req.PostID); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddInheritance(w http.ResponseWriter, r *http.Request) {
	s.handleInheritance(w, r, s.engine.AddInheritance)
}

func (s *Server) handleRemoveInheritance(w http.ResponseWriter, r *http.Request) {
	s.handleInheritance(w, r, s.engine.RemoveInheritance)
}

func (s *Server) handleInheritance(w http.ResponseWriter, r *http.Request, op func(context.Context, string, domain.EntityRef) error) {
	var req struct {
		InheritingShard string `json:"inheritingShard"`
		followTarget
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.InheritingShard == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "inheritingShard is required")
		return
	}
	target, err := req.ref()
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	if err := op(r.Context(), req.InheritingShard, target); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeEngineError maps the engine's error taxonomy onto HTTP status codes.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NotFound", err.Error())
	case errors.Is(err, domain.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "InvalidRange", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "AlreadyExists", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrClosureTooLarge):
		s.logger.Error("store failure", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "StoreUnavailable", "graph store unavailable")
	case errors.Is(err, domain.ErrDataIntegrity):
		s.logger.Error("data integrity violation", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "DataIntegrity", "inconsistent graph data")
	default:
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	}
}

func viewer(r *http.Request) string {
	return domain.NormalizeKey(r.Header.Get(viewerHeader))
}

func pageParams(r *http.Request) (first, count *int, err error) {
	if f := r.URL.Query().Get("first"); f != "" {
		parsed, err := strconv.Atoi(f)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid first parameter %q", f)
		}
		first = &parsed
	}
	if c := r.URL.Query().Get("count"); c != "" {
		parsed, err := strconv.Atoi(c)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid count parameter %q", c)
		}
		count = &parsed
	}
	return first, count, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the underlying writer so the websocket upgrade on
// the stream endpoint works behind the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
