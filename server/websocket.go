package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mobile-next/touchbridge/utils"
	"github.com/sirupsen/logrus"
)

type wsConnection struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	log     *logrus.Entry
}

func newUpgrader(enableCORS bool) *websocket.Upgrader {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	if enableCORS {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	} else {
		upgrader.CheckOrigin = isSameOrigin
	}

	return &upgrader
}

// NewWebSocketHandler serves JSON-RPC over a WebSocket with the default methods.
func NewWebSocketHandler(enableCORS bool) http.Handler {
	return newWebSocketHandler(GetMethodRegistry(), enableCORS)
}

func newWebSocketHandler(methods map[string]HandlerFunc, enableCORS bool) http.Handler {
	upgrader := newUpgrader(enableCORS)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, upgrader, methods)
	})
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader, methods map[string]HandlerFunc) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Warn("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	wsConn := &wsConnection{
		id:   id,
		conn: conn,
		log:  utils.WithFields(map[string]interface{}{"connection": id}),
	}
	wsConn.log.Debugf("WebSocket connected from %s", r.RemoteAddr)

	// requests in flight are cancelled when the client goes away
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			wsConn.log.Debugf("WebSocket connection closed: %v", err)
			break
		}

		if messageType != websocket.TextMessage {
			_ = wsConn.sendError(nil, ErrCodeInvalidRequest, errTitleInvalidReq, "only text messages accepted for requests")
			continue
		}

		wsConn.handleMessage(ctx, methods, message)
	}
}

func isSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return originURL.Host == r.Host
}

func (wsc *wsConnection) handleMessage(ctx context.Context, methods map[string]HandlerFunc, message []byte) {
	var req JSONRPCRequest
	if err := json.Unmarshal(message, &req); err != nil {
		_ = wsc.sendError(nil, ErrCodeParseError, errTitleParseError, errMsgParseError)
		return
	}

	if rpcErr := validateJSONRPCRequest(req); rpcErr != nil {
		_ = wsc.sendError(req.ID, rpcErr.code, rpcErr.message, rpcErr.data)
		return
	}

	wsc.log.WithField("method", req.Method).Infof("WebSocket request %v, params: %s", req.ID, string(req.Params))

	result, rpcErr := callMethod(ctx, methods, req)
	if rpcErr != nil {
		_ = wsc.sendError(req.ID, rpcErr.code, rpcErr.message, rpcErr.data)
		return
	}

	_ = wsc.sendResponse(req.ID, result)
}

func (wsc *wsConnection) sendResponse(id interface{}, result interface{}) error {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return wsc.sendJSON(response)
}

func (wsc *wsConnection) sendError(id interface{}, code int, message string, data interface{}) error {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}
	return wsc.sendJSON(response)
}

func (wsc *wsConnection) sendJSON(v interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	return wsc.conn.WriteJSON(v)
}
