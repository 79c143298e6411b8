package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mobile-next/touchbridge/config"
	"github.com/mobile-next/touchbridge/devices"
	"github.com/mobile-next/touchbridge/devices/adb"
	"github.com/mobile-next/touchbridge/devices/input"
	"github.com/mobile-next/touchbridge/utils"
)

// CommandResponse represents a standardized response format for all commands
type CommandResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) *CommandResponse {
	return &CommandResponse{
		Status: "ok",
		Data:   data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err error) *CommandResponse {
	return &CommandResponse{
		Status: "error",
		Error:  err.Error(),
	}
}

var (
	settingsMu sync.RWMutex
	settings   = config.Default()

	// deviceRegistry holds brought-up devices between commands. The server
	// keeps one for its lifetime; a CLI invocation uses it once.
	registryOnce   sync.Once
	deviceRegistry *devices.DeviceRegistry

	shutdownHook *devices.ShutdownHook

	// bringupMu serializes bring-ups so two requests never restart adb at once
	bringupMu sync.Mutex

	connectDevice = bringupDevice
	listDevices   = func(ctx context.Context) ([]adb.DeviceEntry, error) {
		return adb.ListDevices(ctx, Settings().Adb.Path)
	}
)

// SetConfig replaces the configuration used by commands. Devices already
// brought up pick up the new move duration.
func SetConfig(cfg *config.Config) {
	settingsMu.Lock()
	settings = cfg
	settingsMu.Unlock()

	for _, session := range GetRegistry().Sessions() {
		if d, ok := session.Device.(interface{ SetMoveDuration(time.Duration) }); ok {
			d.SetMoveDuration(cfg.Input.MoveDuration)
		}
	}
}

func Settings() *config.Config {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// SetRegistry sets the registry that holds brought-up devices. Call it once
// at startup, before any command runs.
func SetRegistry(registry *devices.DeviceRegistry) {
	registryOnce.Do(func() {})
	deviceRegistry = registry
}

// GetRegistry returns the device registry, creating a default one on first use.
func GetRegistry() *devices.DeviceRegistry {
	registryOnce.Do(func() {
		registry, err := devices.NewDeviceRegistry(devices.DefaultRegistrySize)
		if err != nil {
			panic(fmt.Sprintf("failed to create device registry: %v", err))
		}
		deviceRegistry = registry
	})
	return deviceRegistry
}

func SetShutdownHook(hook *devices.ShutdownHook) {
	shutdownHook = hook
}

func GetShutdownHook() *devices.ShutdownHook {
	return shutdownHook
}

// BringupOptions maps the configuration onto bring-up options.
func BringupOptions(cfg *config.Config) devices.BringupOptions {
	return devices.BringupOptions{
		Retries:           cfg.Bringup.Retries,
		RetryDelay:        cfg.Bringup.RetryDelay,
		CaptureAttempts:   cfg.Capture.Attempts,
		CaptureRetryDelay: cfg.Capture.RetryDelay,
		Input: input.Options{
			MoveDuration: cfg.Input.MoveDuration,
			TickInterval: cfg.Input.TickInterval,
		},
	}
}

func bringupDevice(ctx context.Context, deviceID string) (devices.Controller, error) {
	cfg := Settings()
	client := adb.NewClient(cfg.Adb.Path, deviceID)
	return devices.Bringup(ctx, deviceID, client, BringupOptions(cfg))
}

// FindDevice returns the session device for deviceID, bringing it up on first use.
func FindDevice(ctx context.Context, deviceID string) (devices.Controller, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device ID is required")
	}

	registry := GetRegistry()
	if session, ok := registry.Get(deviceID); ok {
		return session.Device, nil
	}

	bringupMu.Lock()
	defer bringupMu.Unlock()

	// another request may have finished bring-up while we waited
	if session, ok := registry.Get(deviceID); ok {
		return session.Device, nil
	}

	device, err := connectDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to bring up device %s: %w", deviceID, err)
	}

	session := registry.Register(device)
	utils.WithFields(map[string]interface{}{
		"device":  deviceID,
		"session": session.ID,
	}).Info("session started")

	return device, nil
}

// FindDeviceOrAutoSelect finds a device by ID, falls back to the configured
// serial, and otherwise picks the only online device.
func FindDeviceOrAutoSelect(ctx context.Context, deviceID string) (devices.Controller, error) {
	if deviceID == "" {
		deviceID = Settings().Adb.Serial
	}
	if deviceID != "" {
		return FindDevice(ctx, deviceID)
	}

	entries, err := listDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting devices: %w", err)
	}

	var online []string
	for _, entry := range entries {
		if entry.Online() {
			online = append(online, entry.Serial)
		}
	}

	if len(online) == 0 {
		return nil, fmt.Errorf("no online devices found")
	}
	if len(online) > 1 {
		return nil, fmt.Errorf("multiple devices found (%d), please specify --device with one of: [%s]", len(online), strings.Join(online, ", "))
	}

	return FindDevice(ctx, online[0])
}

// CloseDevice ends the session of deviceID, stopping its event monitor.
func CloseDevice(deviceID string) bool {
	return GetRegistry().Remove(deviceID)
}
