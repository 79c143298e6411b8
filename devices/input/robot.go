package input

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mobile-next/touchbridge/devices/animation"
	"github.com/mobile-next/touchbridge/types"
	"github.com/mobile-next/touchbridge/utils"
)

const (
	DefaultMoveDuration = 500 * time.Millisecond
	DefaultTickInterval = 10 * time.Millisecond
)

// Executor runs a command on the device and streams its output.
type Executor interface {
	Execute(ctx context.Context, command string, args ...string) (io.ReadCloser, error)
}

type Options struct {
	MoveDuration time.Duration
	TickInterval time.Duration
	// DisableMonitor skips the background getevent reader.
	DisableMonitor bool
}

type touchSlot struct {
	mu       sync.Mutex
	x, y     int
	touching atomic.Bool
}

func (s *touchSlot) cursor() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

func (s *touchSlot) setCursor(x, y int) {
	s.mu.Lock()
	s.x, s.y = x, y
	s.mu.Unlock()
}

// Robot synthesizes multi-touch and key events on a single evdev device.
type Robot struct {
	exec       Executor
	devicePath string
	axes       *AxisModel
	width      int
	height     int
	maxX       int64
	maxY       int64

	slots []*touchSlot

	heldMu sync.Mutex
	held   []int

	moveDuration atomic.Int64
	tick         time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}
	closeOnce     sync.Once
}

// NewRobot creates a Robot for the touch device described by axes, on a
// display of width x height logical pixels. Unless disabled, the event
// monitor starts immediately and runs until Close.
func NewRobot(exec Executor, axes *AxisModel, width, height int, opts Options) (*Robot, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid display size %dx%d", width, height)
	}
	if axes == nil || axes.DevicePath == "" {
		return nil, fmt.Errorf("touch device path is required")
	}

	specX, okX := axes.Spec(ABS_MT_POSITION_X)
	specY, okY := axes.Spec(ABS_MT_POSITION_Y)
	if !okX || !okY || specX.Max <= 0 || specY.Max <= 0 {
		return nil, fmt.Errorf("%s has no usable multi-touch position axes: %w", axes.DevicePath, ErrUnsupportedDevice)
	}

	if opts.MoveDuration <= 0 {
		opts.MoveDuration = DefaultMoveDuration
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	r := &Robot{
		exec:       exec,
		devicePath: axes.DevicePath,
		axes:       axes,
		width:      width,
		height:     height,
		maxX:       specX.Max,
		maxY:       specY.Max,
		tick:       opts.TickInterval,
		now:        time.Now,
		sleep:      sleepContext,
	}
	r.moveDuration.Store(int64(opts.MoveDuration))

	count := axes.SlotCount()
	r.slots = make([]*touchSlot, count)
	for i := range r.slots {
		r.slots[i] = &touchSlot{}
	}

	utils.Verbose("robot for %s: %dx%d display, raw max %dx%d, %d slots", r.devicePath, width, height, r.maxX, r.maxY, count)

	if !opts.DisableMonitor {
		r.startMonitor()
	}

	return r, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close stops the event monitor and waits for it to exit.
func (r *Robot) Close() error {
	r.closeOnce.Do(func() {
		if r.monitorCancel != nil {
			r.monitorCancel()
			<-r.monitorDone
		}
	})
	return nil
}

func (r *Robot) DevicePath() string {
	return r.devicePath
}

func (r *Robot) SlotCount() int {
	return len(r.slots)
}

func (r *Robot) SetMoveDuration(d time.Duration) {
	if d > 0 {
		r.moveDuration.Store(int64(d))
	}
}

func (r *Robot) MoveDuration() time.Duration {
	return time.Duration(r.moveDuration.Load())
}

// Touches returns a snapshot of every slot.
func (r *Robot) Touches() []types.TouchState {
	states := make([]types.TouchState, len(r.slots))
	for i, s := range r.slots {
		x, y := s.cursor()
		states[i] = types.TouchState{Slot: i, X: x, Y: y, Touching: s.touching.Load()}
	}
	return states
}

// LogicalToRaw scales a logical coordinate on a display dimension d onto a
// raw axis with maximum m.
func LogicalToRaw(c, d int, m int64) int64 {
	return int64(math.Round(float64(c) / float64(d) * float64(m)))
}

// RawToLogical is the inverse of LogicalToRaw.
func RawToLogical(raw int64, d int, m int64) int {
	return int(math.Round(float64(raw) / float64(m) * float64(d)))
}

// CoordToValue converts a logical coordinate into the raw value of a position axis.
func (r *Robot) CoordToValue(code EventCode, c int) (int64, error) {
	switch code {
	case ABS_MT_POSITION_X:
		return LogicalToRaw(c, r.width, r.maxX), nil
	case ABS_MT_POSITION_Y:
		return LogicalToRaw(c, r.height, r.maxY), nil
	default:
		return 0, &UnsupportedAxisError{Code: code}
	}
}

// ValueToCoord converts a raw position-axis value into a logical coordinate.
func (r *Robot) ValueToCoord(code EventCode, raw int64) (int, error) {
	switch code {
	case ABS_MT_POSITION_X:
		return RawToLogical(raw, r.width, r.maxX), nil
	case ABS_MT_POSITION_Y:
		return RawToLogical(raw, r.height, r.maxY), nil
	default:
		return 0, &UnsupportedAxisError{Code: code}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (r *Robot) slot(index int) (*touchSlot, error) {
	if index < 0 || index >= len(r.slots) {
		return nil, fmt.Errorf("touch slot %d out of range [0,%d)", index, len(r.slots))
	}
	return r.slots[index], nil
}

// batch collects the events of one low-level action group. State changes are
// recorded so they can be rolled back if sending fails.
type batch struct {
	r      *Robot
	events []Event
	undo   []func()
}

func (b *batch) add(events ...Event) {
	b.events = append(b.events, events...)
}

func (b *batch) touchDown(index int) {
	s := b.r.slots[index]
	if !s.touching.CompareAndSwap(false, true) {
		return
	}
	b.undo = append(b.undo, func() { s.touching.Store(false) })

	x, y := s.cursor()
	b.add(
		absEvent(ABS_MT_SLOT, int64(index)),
		absEvent(ABS_MT_TRACKING_ID, int64(index)),
		absEvent(ABS_MT_TOUCH_MAJOR, touchMajorDown),
		absEvent(ABS_MT_PRESSURE, pressureDown),
		absEvent(ABS_MT_POSITION_X, LogicalToRaw(x, b.r.width, b.r.maxX)),
		absEvent(ABS_MT_POSITION_Y, LogicalToRaw(y, b.r.height, b.r.maxY)),
	)
}

func (b *batch) touchUp(index int) {
	s := b.r.slots[index]
	if !s.touching.CompareAndSwap(true, false) {
		return
	}
	b.undo = append(b.undo, func() { s.touching.Store(true) })

	b.add(
		absEvent(ABS_MT_SLOT, int64(index)),
		absEvent(ABS_MT_PRESSURE, 0),
		absEvent(ABS_MT_TRACKING_ID, trackingIDNone),
	)
}

func (b *batch) touchMove(index, x, y int) {
	s := b.r.slots[index]
	x = clamp(x, 0, b.r.width-1)
	y = clamp(y, 0, b.r.height-1)

	s.mu.Lock()
	oldX, oldY := s.x, s.y
	s.x, s.y = x, y
	s.mu.Unlock()

	if !s.touching.Load() {
		return
	}

	rawX := LogicalToRaw(x, b.r.width, b.r.maxX)
	rawY := LogicalToRaw(y, b.r.height, b.r.maxY)
	changedX := rawX != LogicalToRaw(oldX, b.r.width, b.r.maxX)
	changedY := rawY != LogicalToRaw(oldY, b.r.height, b.r.maxY)
	if !changedX && !changedY {
		return
	}
	b.undo = append(b.undo, func() {
		s.mu.Lock()
		s.x, s.y = oldX, oldY
		s.mu.Unlock()
	})

	if len(b.r.slots) > 1 {
		b.add(absEvent(ABS_MT_SLOT, int64(index)))
	}
	if changedX {
		b.add(absEvent(ABS_MT_POSITION_X, rawX))
	}
	if changedY {
		b.add(absEvent(ABS_MT_POSITION_Y, rawY))
	}
}

// apply builds one batch and sends it followed by a single SYN_REPORT.
// Empty batches send nothing.
func (r *Robot) apply(ctx context.Context, build func(b *batch)) error {
	b := &batch{r: r}
	build(b)
	if len(b.events) == 0 {
		return nil
	}

	if err := r.send(ctx, append(b.events, syncEvent)); err != nil {
		for i := len(b.undo) - 1; i >= 0; i-- {
			b.undo[i]()
		}
		return err
	}
	return nil
}

func (r *Robot) send(ctx context.Context, events []Event) error {
	for _, ev := range events {
		stream, err := r.exec.Execute(ctx, "sendevent", ev.args(r.devicePath)...)
		if err != nil {
			return fmt.Errorf("failed to send event %d %d %d: %w", ev.Type, ev.Code, ev.Value, err)
		}
		_, err = io.Copy(io.Discard, stream)
		if closeErr := stream.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("failed to send event %d %d %d: %w", ev.Type, ev.Code, ev.Value, err)
		}
	}
	return nil
}

// TouchDown presses slot at its current cursor. A slot that is already down is left alone.
func (r *Robot) TouchDown(ctx context.Context, slot int) error {
	if _, err := r.slot(slot); err != nil {
		return err
	}
	return r.apply(ctx, func(b *batch) { b.touchDown(slot) })
}

// TouchUp lifts slot. A slot that is already up is left alone.
func (r *Robot) TouchUp(ctx context.Context, slot int) error {
	if _, err := r.slot(slot); err != nil {
		return err
	}
	return r.apply(ctx, func(b *batch) { b.touchUp(slot) })
}

// TouchMove moves the cursor of slot, clamped to the display. Events are only
// sent while the slot is down.
func (r *Robot) TouchMove(ctx context.Context, slot, x, y int) error {
	if _, err := r.slot(slot); err != nil {
		return err
	}
	return r.apply(ctx, func(b *batch) { b.touchMove(slot, x, y) })
}

func (r *Robot) MouseDown(ctx context.Context) error {
	return r.TouchDown(ctx, 0)
}

func (r *Robot) MouseUp(ctx context.Context) error {
	return r.TouchUp(ctx, 0)
}

func (r *Robot) MouseMove(ctx context.Context, x, y int) error {
	return r.TouchMove(ctx, 0, x, y)
}

// MouseReset lifts the pointer and parks it at the origin.
func (r *Robot) MouseReset(ctx context.Context) error {
	if err := r.MouseUp(ctx); err != nil {
		return err
	}
	return r.MouseMove(ctx, 0, 0)
}

func (r *Robot) MouseWheel(ctx context.Context, amount int) error {
	return fmt.Errorf("mouse wheel on a touchscreen: %w", ErrUnsupportedOperation)
}

// MouseLocation returns the cursor of slot 0.
func (r *Robot) MouseLocation() types.Location {
	x, y := r.slots[0].cursor()
	return types.Location{X: x, Y: y}
}

// SmoothMove glides slot 0 from its cursor to dest over the configured move duration.
func (r *Robot) SmoothMove(ctx context.Context, dest types.Location) error {
	return r.SmoothTouchMove(ctx, []types.TouchMove{{Slot: 0, Dest: dest}}, r.MoveDuration())
}

func (r *Robot) SmoothMoveFrom(ctx context.Context, src, dest types.Location, d time.Duration) error {
	return r.SmoothTouchMove(ctx, []types.TouchMove{{Slot: 0, Src: &src, Dest: dest}}, d)
}

type slotAnimation struct {
	slot int
	x, y *animation.Animator
}

// SmoothTouchMove moves every listed slot concurrently with out-quartic
// easing. Each tick sends all slot positions in one batch. Durations shorter
// than a tick jump straight to the destinations.
func (r *Robot) SmoothTouchMove(ctx context.Context, moves []types.TouchMove, d time.Duration) error {
	for _, m := range moves {
		if _, err := r.slot(m.Slot); err != nil {
			return err
		}
	}
	if len(moves) == 0 {
		return nil
	}

	if d < r.tick {
		return r.apply(ctx, func(b *batch) {
			for _, m := range moves {
				b.touchMove(m.Slot, m.Dest.X, m.Dest.Y)
			}
		})
	}

	start := r.now()
	anims := make([]slotAnimation, len(moves))
	for i, m := range moves {
		var fromX, fromY int
		if m.Src != nil {
			fromX, fromY = m.Src.X, m.Src.Y
		} else {
			fromX, fromY = r.slots[m.Slot].cursor()
		}
		anims[i] = slotAnimation{
			slot: m.Slot,
			x:    animation.NewOutQuartic(float64(fromX), float64(m.Dest.X), d),
			y:    animation.NewOutQuartic(float64(fromY), float64(m.Dest.Y), d),
		}
		anims[i].x.Start(start)
		anims[i].y.Start(start)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := r.now()
		done := true
		err := r.apply(ctx, func(b *batch) {
			for _, a := range anims {
				x := int(math.Round(a.x.Tick(now)))
				y := int(math.Round(a.y.Tick(now)))
				b.touchMove(a.slot, x, y)
				if !a.x.Done() || !a.y.Done() {
					done = false
				}
			}
		})
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if err := r.sleep(ctx, r.tick); err != nil {
			return err
		}
	}
}

// Tap presses slot 0 at loc for hold.
func (r *Robot) Tap(ctx context.Context, loc types.Location, hold time.Duration) error {
	if err := r.MouseMove(ctx, loc.X, loc.Y); err != nil {
		return err
	}
	if err := r.MouseDown(ctx); err != nil {
		return err
	}
	if hold > 0 {
		if err := r.sleep(ctx, hold); err != nil {
			// never leave the contact down
			_ = r.MouseUp(context.WithoutCancel(ctx))
			return err
		}
	}
	return r.MouseUp(ctx)
}

// Swipe drags slot 0 from one location to another over d.
func (r *Robot) Swipe(ctx context.Context, from, to types.Location, d time.Duration) error {
	if err := r.MouseMove(ctx, from.X, from.Y); err != nil {
		return err
	}
	if err := r.MouseDown(ctx); err != nil {
		return err
	}
	if err := r.SmoothTouchMove(ctx, []types.TouchMove{{Slot: 0, Dest: to}}, d); err != nil {
		_ = r.MouseUp(context.WithoutCancel(ctx))
		return err
	}
	return r.MouseUp(ctx)
}

func (r *Robot) hold(code int) {
	r.heldMu.Lock()
	defer r.heldMu.Unlock()
	for _, c := range r.held {
		if c == code {
			return
		}
	}
	r.held = append(r.held, code)
}

func (r *Robot) release(code int) {
	r.heldMu.Lock()
	defer r.heldMu.Unlock()
	for i, c := range r.held {
		if c == code {
			r.held = append(r.held[:i], r.held[i+1:]...)
			return
		}
	}
}

// HeldKeys returns the key codes pressed and not yet released, in press order.
func (r *Robot) HeldKeys() []int {
	r.heldMu.Lock()
	defer r.heldMu.Unlock()
	return append([]int(nil), r.held...)
}

func (r *Robot) sendKeys(ctx context.Context, events ...Event) error {
	if err := r.send(ctx, append(events, syncEvent)); err != nil {
		return err
	}
	for _, ev := range events {
		if ev.Value == KeyPress {
			r.hold(int(ev.Code))
		} else {
			r.release(int(ev.Code))
		}
	}
	return nil
}

func (r *Robot) KeyDown(ctx context.Context, code int) error {
	return r.sendKeys(ctx, keyEvent(code, KeyPress))
}

func (r *Robot) KeyUp(ctx context.Context, code int) error {
	return r.sendKeys(ctx, keyEvent(code, KeyRelease))
}

// TypeKey presses and releases code.
func (r *Robot) TypeKey(ctx context.Context, code int) error {
	if err := r.KeyDown(ctx, code); err != nil {
		return err
	}
	return r.KeyUp(ctx, code)
}

func charEvents(s string, value int64) ([][]Event, error) {
	var groups [][]Event
	for _, ch := range s {
		code, err := KeyForChar(ch)
		if err != nil {
			return nil, err
		}
		key := keyEvent(code, value)
		shift := keyEvent(KEY_LEFTSHIFT, value)
		switch {
		case !RequiresShift(ch):
			groups = append(groups, []Event{key})
		case value == KeyPress:
			groups = append(groups, []Event{shift, key})
		default:
			groups = append(groups, []Event{key, shift})
		}
	}
	return groups, nil
}

// KeyDownString presses every character of s, holding shift around shifted characters.
func (r *Robot) KeyDownString(ctx context.Context, s string) error {
	groups, err := charEvents(s, KeyPress)
	if err != nil {
		return err
	}
	for _, events := range groups {
		if err := r.sendKeys(ctx, events...); err != nil {
			return err
		}
	}
	return nil
}

// KeyUpString releases every character of s; shift goes up after the key.
func (r *Robot) KeyUpString(ctx context.Context, s string) error {
	groups, err := charEvents(s, KeyRelease)
	if err != nil {
		return err
	}
	for _, events := range groups {
		if err := r.sendKeys(ctx, events...); err != nil {
			return err
		}
	}
	return nil
}

// KeyUpAll releases every key still held.
func (r *Robot) KeyUpAll(ctx context.Context) error {
	held := r.HeldKeys()
	for i := len(held) - 1; i >= 0; i-- {
		if err := r.KeyUp(ctx, held[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Robot) TypeChar(ctx context.Context, ch rune, mode KeyMode) error {
	s := string(ch)
	switch mode {
	case PressRelease:
		if err := r.KeyDownString(ctx, s); err != nil {
			return err
		}
		return r.KeyUpString(ctx, s)
	case PressOnly:
		return r.KeyDownString(ctx, s)
	case ReleaseOnly:
		return r.KeyUpString(ctx, s)
	default:
		return fmt.Errorf("unknown key mode: %s", mode)
	}
}

// TypeText types s one character at a time.
func (r *Robot) TypeText(ctx context.Context, s string) error {
	if _, err := charEvents(s, KeyPress); err != nil {
		return err
	}
	for _, ch := range s {
		if err := r.TypeChar(ctx, ch, PressRelease); err != nil {
			return err
		}
	}
	return nil
}

// PressModifiers presses the keys for a Mod* mask. Unknown bits are ignored.
func (r *Robot) PressModifiers(ctx context.Context, modifiers int) error {
	codes := modifierCodes(modifiers)
	if len(codes) == 0 {
		return nil
	}
	events := make([]Event, len(codes))
	for i, code := range codes {
		events[i] = keyEvent(code, KeyPress)
	}
	return r.sendKeys(ctx, events...)
}

func (r *Robot) ReleaseModifiers(ctx context.Context, modifiers int) error {
	codes := modifierCodes(modifiers)
	if len(codes) == 0 {
		return nil
	}
	events := make([]Event, len(codes))
	for i, code := range codes {
		events[i] = keyEvent(code, KeyRelease)
	}
	return r.sendKeys(ctx, events...)
}

// PressButton presses and releases a named button such as "home" or "back".
func (r *Robot) PressButton(ctx context.Context, name string) error {
	code, err := KeyForButton(name)
	if err != nil {
		return err
	}
	return r.TypeKey(ctx, code)
}
