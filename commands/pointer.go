package commands

import (
	"context"
	"fmt"
)

// PointerLocationRequest controls the developer pointer location overlay.
// Action is one of "status", "show", "hide" or "toggle".
type PointerLocationRequest struct {
	DeviceID string `json:"deviceId"`
	Action   string `json:"action"`
}

type PointerLocationResponse struct {
	Showing bool `json:"showing"`
}

func PointerLocationCommand(ctx context.Context, req PointerLocationRequest) *CommandResponse {
	if req.Action == "" {
		req.Action = "status"
	}
	switch req.Action {
	case "status", "show", "hide", "toggle":
	default:
		return NewErrorResponse(fmt.Errorf("invalid action '%s', must be one of status, show, hide, toggle", req.Action))
	}

	device, err := FindDeviceOrAutoSelect(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("error finding device: %v", err))
	}

	var showing bool
	switch req.Action {
	case "status":
		showing, err = device.IsShowingPointerInfo(ctx)
	case "show", "hide":
		showing = req.Action == "show"
		err = device.DisplayPointerInfo(ctx, showing)
	case "toggle":
		showing, err = device.TogglePointerInfo(ctx)
	}
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to %s pointer location on device %s: %v", req.Action, device.ID(), err))
	}

	return NewSuccessResponse(PointerLocationResponse{Showing: showing})
}
