package adb

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DeviceEntry is one line of `adb devices`.
type DeviceEntry struct {
	Serial string
	State  string
}

func (d DeviceEntry) Online() bool {
	return d.State == "device"
}

func (d DeviceEntry) IsEmulator() bool {
	return strings.HasPrefix(d.Serial, "emulator-")
}

// ListDevices runs `adb devices` and returns every attached serial.
func ListDevices(ctx context.Context, adbPath string) ([]DeviceEntry, error) {
	if adbPath == "" {
		adbPath = "adb"
	}
	output, err := exec.CommandContext(ctx, adbPath, "devices").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to run 'adb devices': %v", err)
	}
	return ParseDevicesOutput(string(output)), nil
}

// ParseDevicesOutput skips the "List of devices attached" banner and daemon noise.
func ParseDevicesOutput(output string) []DeviceEntry {
	var entries []DeviceEntry

	lines := strings.Split(output, "\n")
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) == 2 {
			entries = append(entries, DeviceEntry{Serial: parts[0], State: parts[1]})
		}
	}

	return entries
}
