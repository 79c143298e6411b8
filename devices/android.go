package devices

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/mobile-next/touchbridge/devices/adb"
	"github.com/mobile-next/touchbridge/devices/input"
	"github.com/mobile-next/touchbridge/devices/screencap"
	"github.com/mobile-next/touchbridge/types"
	"github.com/mobile-next/touchbridge/utils"
)

const (
	DefaultBringupRetries    = 5
	DefaultBringupRetryDelay = time.Second

	unknownProperty = "Unknown"
)

// Transport is what bring-up needs from the device connection.
type Transport interface {
	adb.Transport
	adb.Restarter
}

// BringupOptions zero values fall back to the defaults.
type BringupOptions struct {
	// Retries is how many times the transport is restarted while looking for
	// the touch device.
	Retries    int
	RetryDelay time.Duration

	CaptureAttempts   int
	CaptureRetryDelay time.Duration

	Input input.Options
}

func (o BringupOptions) withDefaults() BringupOptions {
	if o.Retries <= 0 {
		o.Retries = DefaultBringupRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultBringupRetryDelay
	}
	if o.CaptureAttempts <= 0 {
		o.CaptureAttempts = screencap.DefaultAttempts
	}
	if o.CaptureRetryDelay <= 0 {
		o.CaptureRetryDelay = screencap.DefaultRetryDelay
	}
	return o
}

// AndroidDevice is a brought-up Android device: its properties, its touch
// device and the robot and capturer that drive it.
type AndroidDevice struct {
	*input.Robot

	id         string
	transport  Transport
	properties types.DeviceProperties
	axes       *input.AxisModel
	capturer   *screencap.Capturer
}

var (
	propertyLineRegex = regexp.MustCompile(`^\[([^\]]+)\]:\s*\[(.*)\]$`)
	physicalSizeRegex = regexp.MustCompile(`Physical size:\s*(\S+?)x(\S+)`)
	orientationRegex  = regexp.MustCompile(`SurfaceOrientation:\s*(\d+)`)
)

// parseProperties reads `getprop` output. Lines that are not "[key]: [value]" are ignored.
func parseProperties(lines []string) map[string]string {
	props := make(map[string]string)
	for _, line := range lines {
		m := propertyLineRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		props[m[1]] = m[2]
	}
	return props
}

func propertyOrUnknown(props map[string]string, key string) string {
	if v, ok := props[key]; ok && v != "" {
		return v
	}
	return unknownProperty
}

func parsePhysicalSize(output string) (int, int, error) {
	m := physicalSizeRegex.FindStringSubmatch(output)
	if m == nil {
		return 0, 0, &DisplayQueryError{Output: output}
	}

	width, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, &DisplayQueryError{Output: output, Err: err}
	}
	height, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, &DisplayQueryError{Output: output, Err: err}
	}
	if width <= 0 || height <= 0 {
		return 0, 0, &DisplayQueryError{Output: output, Err: fmt.Errorf("non-positive size %dx%d", width, height)}
	}

	return width, height, nil
}

func readProperties(ctx context.Context, transport Transport) (types.DeviceProperties, error) {
	lines, err := transport.ExecuteAndReadLines(ctx, "getprop")
	if err != nil {
		return types.DeviceProperties{}, fmt.Errorf("failed to read device properties: %w", err)
	}
	props := parseProperties(lines)

	output, err := transport.ExecuteAndReadText(ctx, "wm", "size")
	if err != nil {
		return types.DeviceProperties{}, fmt.Errorf("failed to query display size: %w", err)
	}
	width, height, err := parsePhysicalSize(output)
	if err != nil {
		return types.DeviceProperties{}, err
	}

	return types.DeviceProperties{
		AndroidVersion: propertyOrUnknown(props, "ro.build.version.release"),
		Brand:          propertyOrUnknown(props, "ro.product.brand"),
		Manufacturer:   propertyOrUnknown(props, "ro.product.manufacturer"),
		Model:          propertyOrUnknown(props, "ro.product.model"),
		Name:           propertyOrUnknown(props, "ro.product.name"),
		DisplayWidth:   width,
		DisplayHeight:  height,
	}, nil
}

var errTouchNotFound = errors.New("no input device reports absolute axes")

func queryTouchBlock(ctx context.Context, transport Transport) (input.DeviceBlock, error) {
	dump, err := transport.ExecuteAndReadText(ctx, "getevent", "-p")
	if err != nil {
		return input.DeviceBlock{}, err
	}
	block, ok := input.FindTouchBlock(dump)
	if !ok {
		return input.DeviceBlock{}, errTouchNotFound
	}
	return block, nil
}

// findTouchDevice queries the input devices, restarting the transport between
// attempts. Some devices only list their touchscreen after adb reconnects.
func findTouchDevice(ctx context.Context, transport Transport, opts BringupOptions) (input.DeviceBlock, error) {
	var block input.DeviceBlock
	var lastErr error
	restarts := 0
	attempt := 0

	operation := func() error {
		if attempt > 0 {
			restarts++
			utils.Info("touch device not found, restarting transport (%d/%d)", restarts, opts.Retries)
			if err := transport.Restart(ctx); err != nil {
				lastErr = err
				return err
			}
			if err := transport.WaitForInitialized(ctx); err != nil {
				lastErr = err
				return err
			}
		}
		attempt++

		b, err := queryTouchBlock(ctx, transport)
		if err != nil {
			lastErr = err
			return err
		}
		block = b
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.RetryDelay), uint64(opts.Retries)), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return input.DeviceBlock{}, ctxErr
		}
		return input.DeviceBlock{}, fmt.Errorf("%w after %d restarts: %v", ErrNoTouchInput, restarts, lastErr)
	}

	return block, nil
}

// Bringup discovers a device's properties, display size and touch device and
// returns a ready AndroidDevice. Close it to stop its event monitor.
func Bringup(ctx context.Context, id string, transport Transport, opts BringupOptions) (*AndroidDevice, error) {
	opts = opts.withDefaults()

	props, err := readProperties(ctx, transport)
	if err != nil {
		return nil, err
	}
	utils.Verbose("device %s: %s %s, Android %s, %dx%d", id, props.Manufacturer, props.Model, props.AndroidVersion, props.DisplayWidth, props.DisplayHeight)

	block, err := findTouchDevice(ctx, transport, opts)
	if err != nil {
		return nil, err
	}

	axes, err := input.ParseCapabilities(block.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse capabilities of %s: %w", block.Path, err)
	}
	for _, skipped := range axes.Skipped {
		utils.Verbose("%s: skipped capability record %v", block.Path, skipped)
	}

	robot, err := input.NewRobot(transport, axes, props.DisplayWidth, props.DisplayHeight, opts.Input)
	if err != nil {
		return nil, err
	}

	utils.Info("device %s ready, touch input on %s (%s)", id, axes.DevicePath, axes.Name)

	return &AndroidDevice{
		Robot:      robot,
		id:         id,
		transport:  transport,
		properties: props,
		axes:       axes,
		capturer:   screencap.NewCapturer(transport, opts.CaptureAttempts, opts.CaptureRetryDelay),
	}, nil
}

func (d *AndroidDevice) ID() string {
	return d.id
}

func (d *AndroidDevice) Name() string {
	return d.properties.Model
}

func (d *AndroidDevice) Platform() string {
	return "android"
}

func (d *AndroidDevice) DeviceType() string {
	if strings.HasPrefix(d.id, "emulator-") {
		return "emulator"
	}
	return "real"
}

func (d *AndroidDevice) Properties() types.DeviceProperties {
	return d.properties
}

func (d *AndroidDevice) DevicePath() string {
	return d.axes.DevicePath
}

func (d *AndroidDevice) Axes() *input.AxisModel {
	return d.axes
}

func (d *AndroidDevice) Info() *FullDeviceInfo {
	return &FullDeviceInfo{
		DeviceInfo: DeviceInfo{
			ID:       d.id,
			Name:     d.Name(),
			Platform: d.Platform(),
			Type:     d.DeviceType(),
		},
		Properties: d.properties,
		ScreenSize: d.properties.DisplaySize(),
		TouchInput: TouchInputInfo{
			DevicePath: d.axes.DevicePath,
			Name:       d.axes.Name,
			Slots:      d.axes.SlotCount(),
		},
	}
}

func (d *AndroidDevice) CaptureFrame(ctx context.Context) (*screencap.Frame, error) {
	return d.capturer.CaptureFrame(ctx)
}

func (d *AndroidDevice) IsShowingPointerInfo(ctx context.Context) (bool, error) {
	output, err := d.transport.ExecuteAndReadText(ctx, "settings", "get", "system", "pointer_location")
	if err != nil {
		return false, fmt.Errorf("failed to read pointer_location: %w", err)
	}
	return strings.TrimSpace(output) == "1", nil
}

// DisplayPointerInfo turns the developer pointer location overlay on or off.
func (d *AndroidDevice) DisplayPointerInfo(ctx context.Context, show bool) error {
	value := "0"
	if show {
		value = "1"
	}
	if _, err := d.transport.ExecuteAndReadText(ctx, "settings", "put", "system", "pointer_location", value); err != nil {
		return fmt.Errorf("failed to set pointer_location: %w", err)
	}
	return nil
}

func (d *AndroidDevice) TogglePointerInfo(ctx context.Context) (bool, error) {
	showing, err := d.IsShowingPointerInfo(ctx)
	if err != nil {
		return false, err
	}
	if err := d.DisplayPointerInfo(ctx, !showing); err != nil {
		return showing, err
	}
	return !showing, nil
}

// Orientation returns the surface rotation (0-3) reported by the input
// service, or 0 when it is not reported.
func (d *AndroidDevice) Orientation(ctx context.Context) (int, error) {
	output, err := d.transport.ExecuteAndReadText(ctx, "dumpsys", "input")
	if err != nil {
		return 0, fmt.Errorf("failed to query orientation: %w", err)
	}
	return parseSurfaceOrientation(output), nil
}

func parseSurfaceOrientation(output string) int {
	m := orientationRegex.FindStringSubmatch(output)
	if m == nil {
		return 0
	}
	rotation, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return rotation
}

func (d *AndroidDevice) Close() error {
	return d.Robot.Close()
}
