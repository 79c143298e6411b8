package commands

import (
	"context"
	"fmt"
)

// OrientationGetRequest represents the request for getting device orientation
type OrientationGetRequest struct {
	DeviceID string `json:"deviceId"`
}

// OrientationResponse represents the response containing orientation information
type OrientationResponse struct {
	Rotation    int    `json:"rotation"`
	Orientation string `json:"orientation"`
}

var orientationNames = []string{"portrait", "landscape", "reverse-portrait", "reverse-landscape"}

func orientationName(rotation int) string {
	if rotation < 0 || rotation >= len(orientationNames) {
		return "unknown"
	}
	return orientationNames[rotation]
}

// OrientationGetCommand gets the current device orientation
func OrientationGetCommand(ctx context.Context, req OrientationGetRequest) *CommandResponse {
	device, err := FindDeviceOrAutoSelect(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(err)
	}

	rotation, err := device.Orientation(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to get orientation: %v", err))
	}

	return NewSuccessResponse(OrientationResponse{
		Rotation:    rotation,
		Orientation: orientationName(rotation),
	})
}
