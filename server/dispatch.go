package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mobile-next/touchbridge/commands"
)

// HandlerFunc is the signature for JSON-RPC method handlers
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// InvalidParamsError is reported to clients as ErrCodeInvalidParams.
type InvalidParamsError struct {
	Message string
}

func (e *InvalidParamsError) Error() string {
	return e.Message
}

func invalidParams(format string, args ...interface{}) error {
	return &InvalidParamsError{Message: fmt.Sprintf(format, args...)}
}

var okResponse = map[string]interface{}{"status": "ok"}

// GetMethodRegistry returns a map of method names to handler functions.
// server.shutdown is added by the Server itself since it needs the server.
func GetMethodRegistry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"devices":            handleDevicesList,
		"sessions":           handleSessions,
		"session_close":      handleSessionClose,
		"device_info":        handleDeviceInfo,
		"screenshot":         handleScreenshot,
		"io_tap":             handleIoTap,
		"io_longpress":       handleIoLongPress,
		"io_text":            handleIoText,
		"io_key":             handleIoKey,
		"io_swipe":           handleIoSwipe,
		"io_touch":           handleIoTouch,
		"io_touches":         handleIoTouches,
		"io_orientation_get": handleIoOrientationGet,
		"pointer_location":   handlePointerLocation,
	}
}

// Execute dispatches a method call using the registry
func Execute(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	handler, exists := GetMethodRegistry()[method]
	if !exists {
		return nil, fmt.Errorf("method not found: %s", method)
	}

	return handler(ctx, params)
}

// callMethod runs a handler and maps its failure onto a JSON-RPC error.
func callMethod(ctx context.Context, methods map[string]HandlerFunc, req JSONRPCRequest) (interface{}, *rpcError) {
	handler, exists := methods[req.Method]
	if !exists {
		return nil, &rpcError{ErrCodeMethodNotFound, errTitleMethodNotFound, fmt.Sprintf("Method '%s' not found", req.Method)}
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		var paramsErr *InvalidParamsError
		if errors.As(err, &paramsErr) {
			return nil, &rpcError{ErrCodeInvalidParams, errTitleInvalidParams, paramsErr.Message}
		}
		return nil, &rpcError{ErrCodeServerError, errTitleServerError, err.Error()}
	}

	return result, nil
}

// decodeParams unmarshals params into v. Methods whose every field is
// optional accept missing params.
func decodeParams(params json.RawMessage, v interface{}, fields string, required bool) error {
	if len(params) == 0 {
		if required {
			return invalidParams("'params' is required with fields: %s", fields)
		}
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return invalidParams("invalid parameters: %v. Expected fields: %s", err, fields)
	}
	return nil
}

// requireFields rejects params that omit any of the named keys. Zero is a
// valid coordinate, so presence cannot be read off the decoded struct.
func requireFields(params json.RawMessage, fields ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return invalidParams("invalid parameters format")
	}
	for _, field := range fields {
		if _, exists := raw[field]; !exists {
			return invalidParams("'%s' is required", field)
		}
	}
	return nil
}

func resultOf(response *commands.CommandResponse) (interface{}, error) {
	if response.Status == "error" {
		return nil, fmt.Errorf("%s", response.Error)
	}
	return response.Data, nil
}

func okOf(response *commands.CommandResponse) (interface{}, error) {
	if response.Status == "error" {
		return nil, fmt.Errorf("%s", response.Error)
	}
	return okResponse, nil
}

type DevicesParams struct {
	All *bool `json:"all,omitempty"`
}

type DeviceParams struct {
	DeviceID string `json:"deviceId"`
}

func handleDevicesList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p DevicesParams
	if err := decodeParams(params, &p, "all", false); err != nil {
		return nil, err
	}

	// the server shows offline devices unless asked not to
	showAll := true
	if p.All != nil {
		showAll = *p.All
	}
	return resultOf(commands.DevicesCommand(ctx, showAll))
}

func handleSessions(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return resultOf(commands.SessionsCommand())
}

func handleSessionClose(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p DeviceParams
	if err := decodeParams(params, &p, "deviceId", true); err != nil {
		return nil, err
	}
	if p.DeviceID == "" {
		return nil, invalidParams("'deviceId' is required")
	}

	return map[string]interface{}{"closed": commands.CloseDevice(p.DeviceID)}, nil
}

func handleDeviceInfo(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p DeviceParams
	if err := decodeParams(params, &p, "deviceId", false); err != nil {
		return nil, err
	}

	info, err := commands.InfoCommand(ctx, p.DeviceID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"device": info}, nil
}

type ScreenshotParams struct {
	DeviceID string `json:"deviceId"`
	Format   string `json:"format,omitempty"`  // "png" or "jpeg"
	Quality  int    `json:"quality,omitempty"` // 1-100, only used for JPEG
}

func handleScreenshot(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p ScreenshotParams
	if err := decodeParams(params, &p, "deviceId, format, quality", false); err != nil {
		return nil, err
	}

	response := commands.ScreenshotCommand(ctx, commands.ScreenshotRequest{
		DeviceID:   p.DeviceID,
		Format:     p.Format,
		Quality:    p.Quality,
		OutputPath: "-", // always return base64 data for server
	})
	if response.Status == "error" {
		return nil, fmt.Errorf("%s", response.Error)
	}

	if screenshot, ok := response.Data.(commands.ScreenshotResponse); ok {
		return map[string]interface{}{
			"format": screenshot.Format,
			"width":  screenshot.Width,
			"height": screenshot.Height,
			"data":   fmt.Sprintf("data:image/%s;base64,%s", screenshot.Format, screenshot.Data),
		}, nil
	}

	return nil, fmt.Errorf("unexpected response format")
}

func handleIoTap(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req commands.TapRequest
	if err := decodeParams(params, &req, "deviceId, x, y", true); err != nil {
		return nil, err
	}
	if err := requireFields(params, "x", "y"); err != nil {
		return nil, err
	}
	return okOf(commands.TapCommand(ctx, req))
}

func handleIoLongPress(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req commands.LongPressRequest
	if err := decodeParams(params, &req, "deviceId, x, y", true); err != nil {
		return nil, err
	}
	if err := requireFields(params, "x", "y"); err != nil {
		return nil, err
	}
	return okOf(commands.LongPressCommand(ctx, req))
}

func handleIoSwipe(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req commands.SwipeRequest
	if err := decodeParams(params, &req, "deviceId, x1, y1, x2, y2", true); err != nil {
		return nil, err
	}
	if err := requireFields(params, "x1", "y1", "x2", "y2"); err != nil {
		return nil, err
	}
	return okOf(commands.SwipeCommand(ctx, req))
}

func handleIoText(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req commands.TextRequest
	if err := decodeParams(params, &req, "deviceId, text", true); err != nil {
		return nil, err
	}
	if req.Text == "" {
		return nil, invalidParams("'text' is required")
	}
	return okOf(commands.TextCommand(ctx, req))
}

func handleIoKey(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req commands.KeyRequest
	if err := decodeParams(params, &req, "deviceId, button or code, modifiers", true); err != nil {
		return nil, err
	}
	if req.Button == "" && req.Code <= 0 {
		return nil, invalidParams("'button' or 'code' is required")
	}
	return okOf(commands.KeyCommand(ctx, req))
}

func handleIoTouch(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req commands.TouchRequest
	if err := decodeParams(params, &req, "deviceId, slot, action, x, y, duration", true); err != nil {
		return nil, err
	}
	if err := requireFields(params, "action"); err != nil {
		return nil, err
	}
	return resultOf(commands.TouchCommand(ctx, req))
}

func handleIoTouches(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req commands.TouchesRequest
	if err := decodeParams(params, &req, "deviceId", false); err != nil {
		return nil, err
	}
	return resultOf(commands.TouchesCommand(ctx, req))
}

func handleIoOrientationGet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req commands.OrientationGetRequest
	if err := decodeParams(params, &req, "deviceId", false); err != nil {
		return nil, err
	}
	return resultOf(commands.OrientationGetCommand(ctx, req))
}

func handlePointerLocation(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req commands.PointerLocationRequest
	if err := decodeParams(params, &req, "deviceId, action", false); err != nil {
		return nil, err
	}
	return resultOf(commands.PointerLocationCommand(ctx, req))
}
