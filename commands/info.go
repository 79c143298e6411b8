package commands

import (
	"context"
	"fmt"

	"github.com/mobile-next/touchbridge/devices"
)

func InfoCommand(ctx context.Context, deviceID string) (*devices.FullDeviceInfo, error) {
	targetDevice, err := FindDeviceOrAutoSelect(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("error finding device: %v", err)
	}

	return targetDevice.Info(), nil
}
