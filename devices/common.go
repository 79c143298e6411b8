package devices

import (
	"context"
	"fmt"
	"time"

	"github.com/mobile-next/touchbridge/devices/adb"
	"github.com/mobile-next/touchbridge/devices/input"
	"github.com/mobile-next/touchbridge/devices/screencap"
	"github.com/mobile-next/touchbridge/types"
	"github.com/mobile-next/touchbridge/utils"
)

// PointerInput drives the touchscreen, either as a single pointer on slot 0
// or slot by slot.
type PointerInput interface {
	MouseDown(ctx context.Context) error
	MouseUp(ctx context.Context) error
	MouseMove(ctx context.Context, x, y int) error
	MouseReset(ctx context.Context) error
	MouseWheel(ctx context.Context, amount int) error
	MouseLocation() types.Location
	SmoothMove(ctx context.Context, dest types.Location) error
	SmoothMoveFrom(ctx context.Context, src, dest types.Location, d time.Duration) error
	Tap(ctx context.Context, loc types.Location, hold time.Duration) error
	Swipe(ctx context.Context, from, to types.Location, d time.Duration) error

	TouchDown(ctx context.Context, slot int) error
	TouchUp(ctx context.Context, slot int) error
	TouchMove(ctx context.Context, slot, x, y int) error
	SmoothTouchMove(ctx context.Context, moves []types.TouchMove, d time.Duration) error
	Touches() []types.TouchState
}

type KeyInput interface {
	KeyDown(ctx context.Context, code int) error
	KeyUp(ctx context.Context, code int) error
	KeyDownString(ctx context.Context, s string) error
	KeyUpString(ctx context.Context, s string) error
	KeyUpAll(ctx context.Context) error
	TypeChar(ctx context.Context, ch rune, mode input.KeyMode) error
	TypeKey(ctx context.Context, code int) error
	TypeText(ctx context.Context, s string) error
	PressModifiers(ctx context.Context, modifiers int) error
	ReleaseModifiers(ctx context.Context, modifiers int) error
	PressButton(ctx context.Context, name string) error
}

type ScreenCapture interface {
	CaptureFrame(ctx context.Context) (*screencap.Frame, error)
}

// Controller is a brought-up device the commands can drive.
type Controller interface {
	ID() string
	Name() string
	Info() *FullDeviceInfo
	PointerInput
	KeyInput
	ScreenCapture

	IsShowingPointerInfo(ctx context.Context) (bool, error)
	DisplayPointerInfo(ctx context.Context, show bool) error
	TogglePointerInfo(ctx context.Context) (bool, error)
	Orientation(ctx context.Context) (int, error)

	Close() error
}

var _ Controller = (*AndroidDevice)(nil)

// DeviceInfo represents the JSON-friendly device information
type DeviceInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Type     string `json:"type"`
	State    string `json:"state"`
	Version  string `json:"version,omitempty"`
}

type TouchInputInfo struct {
	DevicePath string `json:"devicePath"`
	Name       string `json:"name"`
	Slots      int    `json:"slots"`
}

type FullDeviceInfo struct {
	DeviceInfo
	Properties types.DeviceProperties `json:"properties"`
	ScreenSize types.Size             `json:"screenSize"`
	TouchInput TouchInputInfo         `json:"touchInput"`
}

// GetDeviceInfoList lists attached devices without bringing them up. Offline
// devices, including AVDs that are not running, are only included when showAll is set.
func GetDeviceInfoList(ctx context.Context, adbPath string, showAll bool) ([]DeviceInfo, error) {
	entries, err := adb.ListDevices(ctx, adbPath)
	if err != nil {
		return nil, fmt.Errorf("error getting devices: %w", err)
	}

	var infos []DeviceInfo
	runningAVDs := make(map[string]bool)
	for _, entry := range entries {
		if !entry.Online() && !showAll {
			continue
		}

		info := DeviceInfo{
			ID:       entry.Serial,
			Name:     entry.Serial,
			Platform: "android",
			Type:     "real",
			State:    entry.State,
		}
		if entry.IsEmulator() {
			info.Type = "emulator"
		}

		if entry.Online() {
			client := adb.NewClient(adbPath, entry.Serial)
			info.Name = getAndroidDeviceName(ctx, client, entry.Serial)
			if showAll && entry.IsEmulator() {
				if name := getAVDName(ctx, client); name != "" {
					runningAVDs[name] = true
				}
			}
		}

		infos = append(infos, info)
	}

	if showAll {
		offline, err := offlineEmulators(avdHome(), runningAVDs)
		if err != nil {
			utils.Verbose("could not list AVDs: %v", err)
		}
		infos = append(infos, offline...)
	}

	return infos, nil
}

// getAVDName asks a running emulator which AVD it was started from.
func getAVDName(ctx context.Context, transport adb.Transport) string {
	for _, prop := range []string{"ro.boot.qemu.avd_name", "ro.kernel.qemu.avd_name"} {
		name, err := transport.ExecuteAndReadText(ctx, "getprop", prop)
		if err == nil && name != "" {
			return name
		}
	}
	return ""
}

func getAndroidDeviceName(ctx context.Context, transport adb.Transport, serial string) string {
	model, err := transport.ExecuteAndReadText(ctx, "getprop", "ro.product.model")
	if err == nil && model != "" {
		return model
	}
	utils.Verbose("could not read model of %s: %v", serial, err)
	return serial
}
