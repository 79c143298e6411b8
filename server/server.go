package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mobile-next/touchbridge/commands"
	"github.com/mobile-next/touchbridge/config"
	"github.com/mobile-next/touchbridge/devices"
	"github.com/mobile-next/touchbridge/utils"
	"golang.org/x/sync/errgroup"
)

const (
	// Parse error: Invalid JSON was received by the server
	ErrCodeParseError = -32700

	// Invalid Request: The JSON sent is not a valid Request object
	ErrCodeInvalidRequest = -32600

	// Method not found: The method does not exist / is not available
	ErrCodeMethodNotFound = -32601

	// Invalid params: Invalid method parameters
	ErrCodeInvalidParams = -32602

	// Server error: the method ran and failed
	ErrCodeServerError = -32000
)

const (
	errTitleParseError     = "Parse error"
	errTitleInvalidReq     = "Invalid Request"
	errTitleMethodNotFound = "Method not found"
	errTitleInvalidParams  = "Invalid params"
	errTitleServerError    = "Server error"

	errMsgParseError     = "expecting jsonrpc payload"
	errMsgInvalidJSONRPC = "'jsonrpc' must be '2.0'"
	errMsgIDRequired     = "'id' field is required"
	errMsgMethodRequired = "'method' is required"
)

// Server timeouts
const (
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 60 * time.Second
	IdleTimeout     = 120 * time.Second
	ShutdownTimeout = 10 * time.Second
)

const shutdownMethod = "server.shutdown"

type JSONRPCRequest struct {
	// these fields are all omitempty, so we can report back to client if they are missing
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

type rpcError struct {
	code    int
	message string
	data    string
}

func validateJSONRPCRequest(req JSONRPCRequest) *rpcError {
	if req.JSONRPC != "2.0" {
		return &rpcError{ErrCodeInvalidRequest, errTitleInvalidReq, errMsgInvalidJSONRPC}
	}
	if req.ID == nil {
		return &rpcError{ErrCodeInvalidRequest, errTitleInvalidReq, errMsgIDRequired}
	}
	if req.Method == "" {
		return &rpcError{ErrCodeInvalidRequest, errTitleInvalidReq, errMsgMethodRequired}
	}
	return nil
}

// Options configures a Server. Loader and ShutdownHook are optional.
type Options struct {
	Listen string
	CORS   bool

	// Loader, when set, is watched and every reload is applied to logging
	// and to the command settings.
	Loader *config.Loader

	ShutdownHook *devices.ShutdownHook
}

// Server exposes the commands over JSON-RPC 2.0 on /rpc and /ws.
type Server struct {
	opts       Options
	methods    map[string]HandlerFunc
	router     *mux.Router
	httpServer *http.Server

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func New(opts Options) *Server {
	if opts.ShutdownHook == nil {
		opts.ShutdownHook = devices.NewShutdownHook()
	}

	s := &Server{
		opts:       opts,
		methods:    GetMethodRegistry(),
		shutdownCh: make(chan struct{}),
	}
	s.methods[shutdownMethod] = s.handleShutdown

	s.router = mux.NewRouter()
	s.router.HandleFunc("/", sendBanner).Methods(http.MethodGet)
	s.router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/rpc", s.handleJSONRPC).Methods(http.MethodPost)
	s.router.Handle("/ws", newWebSocketHandler(s.methods, opts.CORS))

	return s
}

// Handler returns the HTTP handler with the CORS middleware applied when enabled.
func (s *Server) Handler() http.Handler {
	if s.opts.CORS {
		return corsMiddleware(s.router)
	}
	return s.router
}

// corsMiddleware handles CORS preflight requests and adds CORS headers to responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Shutdown asks a running server to stop. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
	})
}

// Run serves until ctx ends or Shutdown is called, then stops the HTTP
// server and runs the shutdown hooks.
func (s *Server) Run(ctx context.Context) error {
	addr, err := utils.NormalizeListenAddress(s.opts.Listen)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	s.opts.ShutdownHook.Register("sessions", func() error {
		commands.GetRegistry().CleanupAll()
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.Info("Starting server on http://%s...", listener.Addr())
		err := s.httpServer.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.shutdownCh:
		}
		utils.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		return errors.Join(err, s.opts.ShutdownHook.Shutdown())
	})

	if s.opts.Loader != nil {
		s.watchConfig(g, gctx)
	}

	return g.Wait()
}

func (s *Server) watchConfig(g *errgroup.Group, ctx context.Context) {
	loader := s.opts.Loader
	loader.OnChange(applyConfig)

	if err := loader.Watch(); err != nil {
		utils.Warn("config hot reload disabled: %v", err)
		return
	}
	s.opts.ShutdownHook.Register("config watcher", loader.Close)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-s.shutdownCh:
				return nil
			case err := <-loader.Errors():
				utils.Warn("%v", err)
			}
		}
	})
}

func applyConfig(cfg *config.Config) {
	if err := utils.ConfigureLogging(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		utils.Warn("ignoring logging settings: %v", err)
	}
	commands.SetConfig(cfg)
	utils.Info("configuration reloaded from %s", cfg.Source)
}

// StartServer runs a server on addr until ctx ends or a client calls server.shutdown.
func StartServer(ctx context.Context, addr string, enableCORS bool, loader *config.Loader) error {
	hook := devices.NewShutdownHook()
	commands.SetShutdownHook(hook)

	return New(Options{
		Listen:       addr,
		CORS:         enableCORS,
		Loader:       loader,
		ShutdownHook: hook,
	}).Run(ctx)
}

func (s *Server) handleShutdown(ctx context.Context, params json.RawMessage) (interface{}, error) {
	utils.Info("shutdown requested")
	s.Shutdown()
	return okResponse, nil
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONRPCError(w, nil, ErrCodeParseError, errTitleParseError, errMsgParseError)
		return
	}

	if rpcErr := validateJSONRPCRequest(req); rpcErr != nil {
		sendJSONRPCError(w, req.ID, rpcErr.code, rpcErr.message, rpcErr.data)
		return
	}

	utils.WithFields(map[string]interface{}{
		"id":     req.ID,
		"method": req.Method,
	}).Infof("rpc request, params: %s", string(req.Params))

	result, rpcErr := callMethod(r.Context(), s.methods, req)
	if rpcErr != nil {
		utils.Warn("method %s failed: %s", req.Method, rpcErr.data)
		sendJSONRPCError(w, req.ID, rpcErr.code, rpcErr.message, rpcErr.data)
		return
	}

	sendJSONRPCResponse(w, req.ID, result)
}

func sendJSONRPCResponse(w http.ResponseWriter, id interface{}, result interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func sendJSONRPCError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func sendBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(okResponse)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"sessions": commands.GetRegistry().Len(),
	})
}
