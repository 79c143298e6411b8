package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/mobile-next/touchbridge/devices/input"
	"github.com/mobile-next/touchbridge/types"
)

const DefaultLongPressDuration = time.Second

// TapRequest represents the parameters for a tap command
type TapRequest struct {
	DeviceID string `json:"deviceId"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	// Duration is how long the contact is held, in milliseconds
	Duration int `json:"duration,omitempty"`
}

// LongPressRequest represents the parameters for a long press command
type LongPressRequest struct {
	DeviceID string `json:"deviceId"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Duration int    `json:"duration,omitempty"`
}

// TextRequest represents the parameters for a text input command
type TextRequest struct {
	DeviceID string `json:"deviceId"`
	Text     string `json:"text"`
}

// KeyRequest presses a named button or a raw key code, optionally with
// modifiers (see input.ModShift and friends) held around it.
type KeyRequest struct {
	DeviceID  string `json:"deviceId"`
	Button    string `json:"button,omitempty"`
	Code      int    `json:"code,omitempty"`
	Modifiers int    `json:"modifiers,omitempty"`
}

// SwipeRequest represents the parameters for a swipe command
type SwipeRequest struct {
	DeviceID string `json:"deviceId"`
	X1       int    `json:"x1"`
	Y1       int    `json:"y1"`
	X2       int    `json:"x2"`
	Y2       int    `json:"y2"`
	Duration int    `json:"duration,omitempty"`
}

// TouchRequest drives a single slot: "down" moves it to (x, y) and presses,
// "move" moves it, "up" lifts it.
type TouchRequest struct {
	DeviceID string `json:"deviceId"`
	Slot     int    `json:"slot"`
	Action   string `json:"action"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	// Duration animates "move" when set, in milliseconds
	Duration int `json:"duration,omitempty"`
}

type TouchesRequest struct {
	DeviceID string `json:"deviceId"`
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func validateCoordinates(x, y int) error {
	if x < 0 || y < 0 {
		return fmt.Errorf("x and y coordinates must be non-negative, got x=%d, y=%d", x, y)
	}
	return nil
}

// TapCommand performs a tap operation on the specified device
func TapCommand(ctx context.Context, req TapRequest) *CommandResponse {
	if err := validateCoordinates(req.X, req.Y); err != nil {
		return NewErrorResponse(err)
	}

	targetDevice, err := FindDeviceOrAutoSelect(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %v", err))
	}

	hold := millis(req.Duration, Settings().Input.TapDuration)
	err = targetDevice.Tap(ctx, types.Location{X: req.X, Y: req.Y}, hold)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to tap on device %s: %v", targetDevice.ID(), err))
	}

	return NewSuccessResponse(map[string]interface{}{
		"message": fmt.Sprintf("Tapped on device %s at (%d,%d)", targetDevice.ID(), req.X, req.Y),
	})
}

// LongPressCommand performs a long press operation on the specified device
func LongPressCommand(ctx context.Context, req LongPressRequest) *CommandResponse {
	if err := validateCoordinates(req.X, req.Y); err != nil {
		return NewErrorResponse(err)
	}

	targetDevice, err := FindDeviceOrAutoSelect(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %v", err))
	}

	hold := millis(req.Duration, DefaultLongPressDuration)
	err = targetDevice.Tap(ctx, types.Location{X: req.X, Y: req.Y}, hold)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to long press on device %s: %v", targetDevice.ID(), err))
	}

	return NewSuccessResponse(map[string]interface{}{
		"message": fmt.Sprintf("Long pressed on device %s at (%d,%d)", targetDevice.ID(), req.X, req.Y),
	})
}

// TextCommand types text on the device keyboard
func TextCommand(ctx context.Context, req TextRequest) *CommandResponse {
	if req.Text == "" {
		return NewErrorResponse(fmt.Errorf("text is required"))
	}

	targetDevice, err := FindDeviceOrAutoSelect(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %v", err))
	}

	err = targetDevice.TypeText(ctx, req.Text)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to send text to device %s: %v", targetDevice.ID(), err))
	}

	return NewSuccessResponse(map[string]interface{}{
		"message": fmt.Sprintf("Sent text to device %s", targetDevice.ID()),
	})
}

// KeyCommand presses a button or key code on the specified device
func KeyCommand(ctx context.Context, req KeyRequest) *CommandResponse {
	if req.Button == "" && req.Code <= 0 {
		return NewErrorResponse(fmt.Errorf("button name or key code is required"))
	}

	code := req.Code
	if req.Button != "" {
		c, err := input.KeyForButton(req.Button)
		if err != nil {
			return NewErrorResponse(err)
		}
		code = c
	}

	targetDevice, err := FindDeviceOrAutoSelect(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %v", err))
	}

	if err := targetDevice.PressModifiers(ctx, req.Modifiers); err != nil {
		return NewErrorResponse(fmt.Errorf("failed to press modifiers on device %s: %v", targetDevice.ID(), err))
	}
	err = targetDevice.TypeKey(ctx, code)
	if releaseErr := targetDevice.ReleaseModifiers(ctx, req.Modifiers); err == nil {
		err = releaseErr
	}
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to press key %d on device %s: %v", code, targetDevice.ID(), err))
	}

	name := req.Button
	if name == "" {
		name = fmt.Sprintf("key %d", code)
	}
	return NewSuccessResponse(map[string]interface{}{
		"message": fmt.Sprintf("Pressed '%s' on device %s", name, targetDevice.ID()),
	})
}

// SwipeCommand performs a swipe operation on the specified device
func SwipeCommand(ctx context.Context, req SwipeRequest) *CommandResponse {
	if err := validateCoordinates(req.X1, req.Y1); err != nil {
		return NewErrorResponse(err)
	}
	if err := validateCoordinates(req.X2, req.Y2); err != nil {
		return NewErrorResponse(err)
	}

	targetDevice, err := FindDeviceOrAutoSelect(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %v", err))
	}

	d := millis(req.Duration, Settings().Input.MoveDuration)
	from := types.Location{X: req.X1, Y: req.Y1}
	to := types.Location{X: req.X2, Y: req.Y2}
	if err := targetDevice.Swipe(ctx, from, to, d); err != nil {
		return NewErrorResponse(fmt.Errorf("failed to swipe on device %s: %v", targetDevice.ID(), err))
	}

	return NewSuccessResponse(map[string]interface{}{
		"message": fmt.Sprintf("Swiped on device %s from (%d,%d) to (%d,%d)", targetDevice.ID(), req.X1, req.Y1, req.X2, req.Y2),
	})
}

// TouchCommand drives one touch slot directly, for multi-finger gestures.
func TouchCommand(ctx context.Context, req TouchRequest) *CommandResponse {
	switch req.Action {
	case "down", "move":
		if err := validateCoordinates(req.X, req.Y); err != nil {
			return NewErrorResponse(err)
		}
	case "up":
	default:
		return NewErrorResponse(fmt.Errorf("invalid action '%s', must be 'down', 'move' or 'up'", req.Action))
	}

	targetDevice, err := FindDeviceOrAutoSelect(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %v", err))
	}

	switch req.Action {
	case "down":
		err = targetDevice.TouchMove(ctx, req.Slot, req.X, req.Y)
		if err == nil {
			err = targetDevice.TouchDown(ctx, req.Slot)
		}
	case "move":
		if req.Duration > 0 {
			move := types.TouchMove{Slot: req.Slot, Dest: types.Location{X: req.X, Y: req.Y}}
			err = targetDevice.SmoothTouchMove(ctx, []types.TouchMove{move}, millis(req.Duration, 0))
		} else {
			err = targetDevice.TouchMove(ctx, req.Slot, req.X, req.Y)
		}
	case "up":
		err = targetDevice.TouchUp(ctx, req.Slot)
	}
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to touch %s slot %d on device %s: %v", req.Action, req.Slot, targetDevice.ID(), err))
	}

	return NewSuccessResponse(map[string]interface{}{
		"touches": targetDevice.Touches(),
	})
}

// TouchesCommand reports the touch slots of a device as last synthesized or observed.
func TouchesCommand(ctx context.Context, req TouchesRequest) *CommandResponse {
	targetDevice, err := FindDeviceOrAutoSelect(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %v", err))
	}

	return NewSuccessResponse(map[string]interface{}{
		"touches": targetDevice.Touches(),
	})
}
