package commands

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mobile-next/touchbridge/config"
	"github.com/mobile-next/touchbridge/devices"
	"github.com/mobile-next/touchbridge/devices/adb"
	"github.com/mobile-next/touchbridge/devices/input"
	"github.com/mobile-next/touchbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const touchDump = `add device 1: /dev/input/event2
  name:     "touchscreen"
  events:
    ABS (0003): 002f  : value 0, min 0, max 9, fuzz 0, flat 0, resolution 0
                0035  : value 0, min 0, max 1079, fuzz 0, flat 0, resolution 0
                0036  : value 0, min 0, max 2399, fuzz 0, flat 0, resolution 0
`

type fakeTransport struct {
	mu              sync.Mutex
	sent            []string
	pointerLocation string
}

func (f *fakeTransport) Execute(ctx context.Context, command string, args ...string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if command == "sendevent" {
		f.sent = append(f.sent, strings.Join(args[1:], " "))
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeTransport) ExecuteAndReadLines(ctx context.Context, command string, args ...string) ([]string, error) {
	return []string{"[ro.product.model]: [Pixel 7]"}, nil
}

func (f *fakeTransport) ExecuteAndReadText(ctx context.Context, command string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	full := strings.Join(append([]string{command}, args...), " ")
	switch {
	case full == "wm size":
		return "Physical size: 1080x2400", nil
	case full == "getevent -p":
		return touchDump, nil
	case full == "dumpsys input":
		return "SurfaceOrientation: 1", nil
	case full == "settings get system pointer_location":
		return f.pointerLocation, nil
	case strings.HasPrefix(full, "settings put system pointer_location"):
		f.pointerLocation = args[len(args)-1]
		return "", nil
	}
	return "", errors.New("unexpected command " + full)
}

func (f *fakeTransport) Restart(ctx context.Context) error            { return nil }
func (f *fakeTransport) WaitForInitialized(ctx context.Context) error { return nil }

func (f *fakeTransport) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type testEnv struct {
	transport *fakeTransport
	connects  int
	entries   []adb.DeviceEntry
}

// setupCommands swaps the package globals for fakes and restores them afterwards.
func setupCommands(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		transport: &fakeTransport{pointerLocation: "0"},
		entries:   []adb.DeviceEntry{{Serial: "emulator-5554", State: "device"}},
	}

	registry, err := devices.NewDeviceRegistry(4)
	require.NoError(t, err)

	oldConnect, oldList, oldSettings, oldRegistry := connectDevice, listDevices, Settings(), GetRegistry()
	t.Cleanup(func() {
		registry.CleanupAll()
		connectDevice, listDevices = oldConnect, oldList
		SetRegistry(oldRegistry)
		SetConfig(oldSettings)
	})

	SetRegistry(registry)
	cfg := config.Default()
	cfg.Input.TapDuration = 0
	cfg.Input.MoveDuration = 0
	SetConfig(cfg)

	connectDevice = func(ctx context.Context, deviceID string) (devices.Controller, error) {
		env.connects++
		opts := BringupOptions(Settings())
		opts.Input = input.Options{DisableMonitor: true, MoveDuration: time.Millisecond}
		return devices.Bringup(ctx, deviceID, env.transport, opts)
	}
	listDevices = func(ctx context.Context) ([]adb.DeviceEntry, error) {
		return env.entries, nil
	}

	return env
}

func TestResponses(t *testing.T) {
	ok := NewSuccessResponse(map[string]int{"a": 1})
	assert.Equal(t, "ok", ok.Status)
	assert.Empty(t, ok.Error)

	failed := NewErrorResponse(errors.New("boom"))
	assert.Equal(t, "error", failed.Status)
	assert.Equal(t, "boom", failed.Error)
	assert.Nil(t, failed.Data)
}

func TestFindDeviceOrAutoSelect(t *testing.T) {
	ctx := context.Background()

	t.Run("single online device is brought up once", func(t *testing.T) {
		env := setupCommands(t)
		env.entries = append(env.entries, adb.DeviceEntry{Serial: "R5CR", State: "offline"})

		first, err := FindDeviceOrAutoSelect(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "emulator-5554", first.ID())

		second, err := FindDeviceOrAutoSelect(ctx, "")
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, env.connects)
	})

	t.Run("no online devices", func(t *testing.T) {
		env := setupCommands(t)
		env.entries = nil

		_, err := FindDeviceOrAutoSelect(ctx, "")
		assert.EqualError(t, err, "no online devices found")
	})

	t.Run("multiple online devices", func(t *testing.T) {
		env := setupCommands(t)
		env.entries = append(env.entries, adb.DeviceEntry{Serial: "R5CR", State: "device"})

		_, err := FindDeviceOrAutoSelect(ctx, "")
		assert.ErrorContains(t, err, "multiple devices found (2)")
		assert.ErrorContains(t, err, "[emulator-5554, R5CR]")
	})

	t.Run("configured serial wins", func(t *testing.T) {
		setupCommands(t)
		cfg := config.Default()
		cfg.Adb.Serial = "R5CR"
		SetConfig(cfg)

		device, err := FindDeviceOrAutoSelect(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "R5CR", device.ID())
	})
}

func TestFindDevice_RequiresID(t *testing.T) {
	setupCommands(t)
	_, err := FindDevice(context.Background(), "")
	assert.EqualError(t, err, "device ID is required")
}

func TestCloseDevice(t *testing.T) {
	env := setupCommands(t)
	ctx := context.Background()

	_, err := FindDevice(ctx, "emulator-5554")
	require.NoError(t, err)
	assert.True(t, CloseDevice("emulator-5554"))

	_, err = FindDevice(ctx, "emulator-5554")
	require.NoError(t, err)
	assert.Equal(t, 2, env.connects)
}

func TestTapCommand(t *testing.T) {
	env := setupCommands(t)

	resp := TapCommand(context.Background(), TapRequest{X: -1, Y: 5})
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "non-negative")
	assert.Equal(t, 0, env.connects)

	resp = TapCommand(context.Background(), TapRequest{X: 100, Y: 200})
	require.Equal(t, "ok", resp.Status, resp.Error)

	events := env.transport.events()
	assert.Contains(t, events, "3 53 100")
	assert.Contains(t, events, "3 54 200")
	assert.Equal(t, "0 0 0", events[len(events)-1])
}

func TestSwipeCommand(t *testing.T) {
	env := setupCommands(t)

	resp := SwipeCommand(context.Background(), SwipeRequest{X1: 10, Y1: 10, X2: 500, Y2: 900, Duration: 1})
	require.Equal(t, "ok", resp.Status, resp.Error)
	assert.Contains(t, env.transport.events(), "3 53 500")

	resp = SwipeCommand(context.Background(), SwipeRequest{X1: 10, Y1: 10, X2: -1, Y2: 900})
	assert.Equal(t, "error", resp.Status)
}

func TestKeyCommand(t *testing.T) {
	env := setupCommands(t)
	ctx := context.Background()

	resp := KeyCommand(ctx, KeyRequest{})
	assert.Equal(t, "button name or key code is required", resp.Error)

	resp = KeyCommand(ctx, KeyRequest{Button: "turbo"})
	assert.Equal(t, "unsupported button key: turbo", resp.Error)

	resp = KeyCommand(ctx, KeyRequest{Code: 30, Modifiers: input.ModCtrl})
	require.Equal(t, "ok", resp.Status, resp.Error)
	assert.Equal(t, []string{
		"1 29 1", "0 0 0",
		"1 30 1", "0 0 0",
		"1 30 0", "0 0 0",
		"1 29 0", "0 0 0",
	}, env.transport.events())
}

func TestTextCommand(t *testing.T) {
	env := setupCommands(t)

	resp := TextCommand(context.Background(), TextRequest{})
	assert.Equal(t, "text is required", resp.Error)

	resp = TextCommand(context.Background(), TextRequest{Text: "ok"})
	require.Equal(t, "ok", resp.Status, resp.Error)
	assert.Len(t, env.transport.events(), 8)
}

func TestTouchCommand(t *testing.T) {
	setupCommands(t)
	ctx := context.Background()

	resp := TouchCommand(ctx, TouchRequest{Action: "pinch"})
	assert.Contains(t, resp.Error, "invalid action 'pinch'")

	resp = TouchCommand(ctx, TouchRequest{Slot: 1, Action: "down", X: 300, Y: 400})
	require.Equal(t, "ok", resp.Status, resp.Error)

	touches := resp.Data.(map[string]interface{})["touches"].([]types.TouchState)
	assert.Equal(t, types.TouchState{Slot: 1, X: 300, Y: 400, Touching: true}, touches[1])

	resp = TouchCommand(ctx, TouchRequest{Slot: 1, Action: "move", X: 350, Y: 450, Duration: 1})
	require.Equal(t, "ok", resp.Status, resp.Error)

	resp = TouchCommand(ctx, TouchRequest{Slot: 1, Action: "up"})
	require.Equal(t, "ok", resp.Status, resp.Error)

	resp = TouchesCommand(ctx, TouchesRequest{})
	touches = resp.Data.(map[string]interface{})["touches"].([]types.TouchState)
	assert.Equal(t, types.TouchState{Slot: 1, X: 350, Y: 450, Touching: false}, touches[1])

	resp = TouchCommand(ctx, TouchRequest{Slot: 42, Action: "up"})
	assert.Equal(t, "error", resp.Status)
}

func TestPointerLocationCommand(t *testing.T) {
	env := setupCommands(t)
	ctx := context.Background()

	resp := PointerLocationCommand(ctx, PointerLocationRequest{Action: "flip"})
	assert.Equal(t, "error", resp.Status)

	resp = PointerLocationCommand(ctx, PointerLocationRequest{Action: "toggle"})
	require.Equal(t, "ok", resp.Status, resp.Error)
	assert.Equal(t, PointerLocationResponse{Showing: true}, resp.Data)
	assert.Equal(t, "1", env.transport.pointerLocation)

	resp = PointerLocationCommand(ctx, PointerLocationRequest{})
	assert.Equal(t, PointerLocationResponse{Showing: true}, resp.Data)

	resp = PointerLocationCommand(ctx, PointerLocationRequest{Action: "hide"})
	assert.Equal(t, PointerLocationResponse{Showing: false}, resp.Data)
}

func TestOrientationGetCommand(t *testing.T) {
	setupCommands(t)

	resp := OrientationGetCommand(context.Background(), OrientationGetRequest{})
	require.Equal(t, "ok", resp.Status, resp.Error)
	assert.Equal(t, OrientationResponse{Rotation: 1, Orientation: "landscape"}, resp.Data)

	assert.Equal(t, "unknown", orientationName(7))
}

func TestInfoCommand(t *testing.T) {
	setupCommands(t)

	info, err := InfoCommand(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Pixel 7", info.Name)
	assert.Equal(t, "emulator", info.Type)
	assert.Equal(t, 9, info.TouchInput.Slots)
}

func TestSetConfig_UpdatesMoveDuration(t *testing.T) {
	setupCommands(t)

	device, err := FindDevice(context.Background(), "emulator-5554")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Input.MoveDuration = 2 * time.Second
	SetConfig(cfg)

	robot := device.(interface{ MoveDuration() time.Duration })
	assert.Equal(t, 2*time.Second, robot.MoveDuration())
}

func TestScreenshotCommand_InvalidFormat(t *testing.T) {
	env := setupCommands(t)

	resp := ScreenshotCommand(context.Background(), ScreenshotRequest{Format: "gif"})
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "invalid format 'gif'")
	assert.Equal(t, 0, env.connects)
}

func TestDoctorHelpers(t *testing.T) {
	assert.Equal(t, "Android Debug Bridge version 1.0.41", parseAdbVersion("Android Debug Bridge version 1.0.41\nVersion 34.0.5\n"))
	assert.Equal(t, "custom", parseAdbVersion("custom\n"))
	assert.Equal(t, "Ubuntu 24.04 LTS", parseOSRelease("NAME=\"Ubuntu\"\nPRETTY_NAME=\"Ubuntu 24.04 LTS\"\n"))
	assert.Empty(t, parseOSRelease("NAME=x"))
}
