package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mobile-next/touchbridge/devices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(cors bool) *Server {
	return New(Options{Listen: "127.0.0.1:0", CORS: cors})
}

func postRPC(t *testing.T, handler http.Handler, body string) JSONRPCResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp JSONRPCResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func errorCode(t *testing.T, resp JSONRPCResponse) int {
	t.Helper()
	require.NotNil(t, resp.Error, "expected an error response")
	errorMap := resp.Error.(map[string]interface{})
	return int(errorMap["code"].(float64))
}

func TestSendBanner(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer(false).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var data map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&data))
	assert.Equal(t, "ok", data["status"])
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer(false).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var data map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&data))
	assert.Equal(t, "ok", data["status"])
	assert.Contains(t, data, "sessions")
}

func TestRPCEndpointMethods(t *testing.T) {
	handler := newTestServer(false).Handler()

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, "/rpc", nil))
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

func TestHandleJSONRPC(t *testing.T) {
	handler := newTestServer(false).Handler()

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantData string
	}{
		{"invalid json", `{"jsonrpc":`, ErrCodeParseError, errMsgParseError},
		{"wrong version", `{"jsonrpc":"1.0","method":"sessions","id":1}`, ErrCodeInvalidRequest, errMsgInvalidJSONRPC},
		{"missing id", `{"jsonrpc":"2.0","method":"sessions"}`, ErrCodeInvalidRequest, errMsgIDRequired},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, ErrCodeInvalidRequest, errMsgMethodRequired},
		{"unknown method", `{"jsonrpc":"2.0","method":"warp","id":1}`, ErrCodeMethodNotFound, "Method 'warp' not found"},
		{"tap without params", `{"jsonrpc":"2.0","method":"io_tap","id":1}`, ErrCodeInvalidParams, "'params' is required with fields: deviceId, x, y"},
		{"tap without y", `{"jsonrpc":"2.0","method":"io_tap","params":{"x":1},"id":1}`, ErrCodeInvalidParams, "'y' is required"},
		{"swipe without x2", `{"jsonrpc":"2.0","method":"io_swipe","params":{"x1":1,"y1":1,"y2":3},"id":1}`, ErrCodeInvalidParams, "'x2' is required"},
		{"text is empty", `{"jsonrpc":"2.0","method":"io_text","params":{"text":""},"id":1}`, ErrCodeInvalidParams, "'text' is required"},
		{"key without button", `{"jsonrpc":"2.0","method":"io_key","params":{"modifiers":1},"id":1}`, ErrCodeInvalidParams, "'button' or 'code' is required"},
		{"touch without action", `{"jsonrpc":"2.0","method":"io_touch","params":{"slot":0},"id":1}`, ErrCodeInvalidParams, "'action' is required"},
		{"session_close without device", `{"jsonrpc":"2.0","method":"session_close","params":{},"id":1}`, ErrCodeInvalidParams, "'deviceId' is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postRPC(t, handler, tt.body)
			assert.Equal(t, "2.0", resp.JSONRPC)
			assert.Nil(t, resp.Result)
			assert.Equal(t, tt.wantCode, errorCode(t, resp))
			assert.Equal(t, tt.wantData, resp.Error.(map[string]interface{})["data"])
		})
	}
}

func TestHandleJSONRPC_Sessions(t *testing.T) {
	resp := postRPC(t, newTestServer(false).Handler(), `{"jsonrpc":"2.0","method":"sessions","id":"abc"}`)

	assert.Nil(t, resp.Error)
	assert.Equal(t, "abc", resp.ID)
	result := resp.Result.(map[string]interface{})
	assert.Contains(t, result, "sessions")
}

func TestHandleJSONRPC_SessionCloseUnknown(t *testing.T) {
	resp := postRPC(t, newTestServer(false).Handler(), `{"jsonrpc":"2.0","method":"session_close","params":{"deviceId":"nope"},"id":7}`)

	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]interface{}{"closed": false}, resp.Result)
}

func TestSendJSONRPCResponse(t *testing.T) {
	w := httptest.NewRecorder()
	sendJSONRPCResponse(w, 42, map[string]string{"hello": "world"})

	var resp JSONRPCResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, float64(42), resp.ID)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]interface{}{"hello": "world"}, resp.Result)
}

func TestSendJSONRPCError(t *testing.T) {
	w := httptest.NewRecorder()
	sendJSONRPCError(w, "x", ErrCodeServerError, errTitleServerError, "boom")

	var resp JSONRPCResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "x", resp.ID)
	assert.Equal(t, ErrCodeServerError, errorCode(t, resp))
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		cors       bool
		method     string
		path       string
		wantStatus int
		wantHeader string
	}{
		{"preflight with cors", true, http.MethodOptions, "/rpc", http.StatusOK, "*"},
		{"get with cors", true, http.MethodGet, "/", http.StatusOK, "*"},
		{"preflight without cors", false, http.MethodOptions, "/rpc", http.StatusMethodNotAllowed, ""},
		{"get without cors", false, http.MethodGet, "/", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestServer(tt.cors).Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantHeader, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestExecute(t *testing.T) {
	_, err := Execute(context.Background(), "nope", nil)
	assert.EqualError(t, err, "method not found: nope")

	result, err := Execute(context.Background(), "sessions", nil)
	require.NoError(t, err)
	assert.Contains(t, result, "sessions")

	// server.shutdown needs a running server
	_, err = Execute(context.Background(), shutdownMethod, nil)
	assert.Error(t, err)
}

func runServer(t *testing.T, s *Server, ctx context.Context) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

func TestRun_ShutdownMethod(t *testing.T) {
	hook := devices.NewShutdownHook()
	var cleaned atomic.Bool
	hook.Register("test", func() error {
		cleaned.Store(true)
		return nil
	})

	s := New(Options{Listen: "127.0.0.1:0", ShutdownHook: hook})
	done := runServer(t, s, context.Background())

	resp := postRPC(t, s.Handler(), `{"jsonrpc":"2.0","method":"server.shutdown","id":1}`)
	assert.Nil(t, resp.Error)

	require.NoError(t, waitRun(t, done))
	assert.True(t, cleaned.Load())
}

func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := runServer(t, newTestServer(false), ctx)

	cancel()
	assert.NoError(t, waitRun(t, done))
}

func TestRun_InvalidAddress(t *testing.T) {
	s := New(Options{Listen: "not-a-port"})
	err := s.Run(context.Background())
	assert.ErrorContains(t, err, "invalid port")
}

func TestShutdown_Idempotent(t *testing.T) {
	s := newTestServer(false)
	s.Shutdown()
	s.Shutdown()

	select {
	case <-s.shutdownCh:
	default:
		t.Fatal("shutdown channel not closed")
	}
}
