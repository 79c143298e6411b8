package commands

import (
	"context"

	"github.com/mobile-next/touchbridge/devices"
)

// DevicesCommand lists all connected devices
func DevicesCommand(ctx context.Context, showAll bool) *CommandResponse {
	deviceInfoList, err := devices.GetDeviceInfoList(ctx, Settings().Adb.Path, showAll)
	if err != nil {
		return NewErrorResponse(err)
	}

	return NewSuccessResponse(map[string]interface{}{
		"devices": deviceInfoList,
	})
}

// SessionsCommand lists the devices currently brought up.
func SessionsCommand() *CommandResponse {
	type sessionInfo struct {
		*devices.Session
		DeviceID string `json:"deviceId"`
	}

	sessions := GetRegistry().Sessions()
	infos := make([]sessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, sessionInfo{Session: s, DeviceID: s.Device.ID()})
	}

	return NewSuccessResponse(map[string]interface{}{
		"sessions": infos,
	})
}
