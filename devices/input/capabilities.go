package input

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// AxisSpec is the range the kernel reports for one absolute axis.
type AxisSpec struct {
	Min        int64
	Max        int64
	Fuzz       int64
	Flat       int64
	Resolution int64
}

// AxisModel is the parsed ABS capability group of one input device. It is
// never modified after ParseCapabilities returns.
type AxisModel struct {
	DevicePath string
	Name       string

	axes map[EventCode]AxisSpec

	// Skipped lists records inside the ABS group that could not be parsed
	Skipped []ParseError
}

// NewAxisModel builds a model directly, mostly for tests and alternate probes.
func NewAxisModel(devicePath string, axes map[EventCode]AxisSpec) *AxisModel {
	copied := make(map[EventCode]AxisSpec, len(axes))
	for code, spec := range axes {
		copied[code] = spec
	}
	return &AxisModel{DevicePath: devicePath, axes: copied}
}

func (m *AxisModel) Spec(code EventCode) (AxisSpec, bool) {
	spec, ok := m.axes[code]
	return spec, ok
}

// Codes returns the known axis codes in ascending order.
func (m *AxisModel) Codes() []EventCode {
	codes := make([]EventCode, 0, len(m.axes))
	for code := range m.axes {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// SlotCount is the number of touch slots to model, at least 1.
func (m *AxisModel) SlotCount() int {
	spec, ok := m.axes[ABS_MT_SLOT]
	if !ok || spec.Max < 1 {
		return 1
	}
	return int(spec.Max)
}

// HasMultiTouchPosition reports whether both MT position axes are present.
func (m *AxisModel) HasMultiTouchPosition() bool {
	_, x := m.axes[ABS_MT_POSITION_X]
	_, y := m.axes[ABS_MT_POSITION_Y]
	return x && y
}

var (
	deviceHeaderRegex = regexp.MustCompile(`^add device \d+:\s*(\S+)`)
	deviceNameRegex   = regexp.MustCompile(`^\s*name:\s*"(.*)"`)
	groupHeaderRegex  = regexp.MustCompile(`^\s*([A-Z]+)\s*\(([0-9a-fA-F]{4})\):\s*(.*)$`)
	labelRegex        = regexp.MustCompile(`^\s*[a-z]*[g-z][a-z ]*:`)
	labeledAxisRegex  = regexp.MustCompile(`^([0-9a-fA-F]{1,4})\s*:\s*value\s+(-?\d+),\s*min\s+(-?\d+),\s*max\s+(-?\d+)(?:,\s*fuzz\s+(-?\d+))?(?:,\s*flat\s+(-?\d+))?(?:,\s*resolution\s+(-?\d+))?`)
)

const absGroup = "ABS"

// ParseCapabilities reads the ABS group of a `getevent -p` report. Records it
// cannot read are collected in Skipped. A report without any ABS group fails
// with ErrUnsupportedDevice.
func ParseCapabilities(report string) (*AxisModel, error) {
	model := &AxisModel{axes: make(map[EventCode]AxisSpec)}
	foundGroup := false
	inAbs := false

	for i, raw := range strings.Split(report, "\n") {
		line := strings.TrimRight(raw, "\r")
		lineNo := i + 1

		if m := deviceHeaderRegex.FindStringSubmatch(line); m != nil {
			if model.DevicePath == "" {
				model.DevicePath = m[1]
			}
			inAbs = false
			continue
		}
		if m := deviceNameRegex.FindStringSubmatch(line); m != nil {
			if model.Name == "" {
				model.Name = m[1]
			}
			inAbs = false
			continue
		}

		record := line
		if m := groupHeaderRegex.FindStringSubmatch(line); m != nil {
			inAbs = m[1] == absGroup
			if !inAbs {
				continue
			}
			foundGroup = true
			record = m[3]
		} else if labelRegex.MatchString(line) {
			inAbs = false
			continue
		}

		if !inAbs {
			continue
		}

		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		code, spec, perr := parseAxisRecord(record)
		if perr != "" {
			model.Skipped = append(model.Skipped, ParseError{Line: lineNo, Text: record, Reason: perr})
			continue
		}
		model.axes[code] = spec
	}

	if !foundGroup {
		return nil, ErrUnsupportedDevice
	}

	return model, nil
}

func parseAxisRecord(record string) (EventCode, AxisSpec, string) {
	if m := labeledAxisRegex.FindStringSubmatch(record); m != nil {
		code, err := strconv.ParseUint(m[1], 16, 16)
		if err != nil {
			return 0, AxisSpec{}, "invalid axis code"
		}
		values := make([]int64, 5)
		for i, s := range []string{m[3], m[4], m[5], m[6], m[7]} {
			if s == "" {
				continue
			}
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return 0, AxisSpec{}, "invalid axis value"
			}
			values[i] = v
		}
		return EventCode(code), AxisSpec{Min: values[0], Max: values[1], Fuzz: values[2], Flat: values[3], Resolution: values[4]}, ""
	}

	// column form: code min max [fuzz flat resolution]
	fields := strings.Fields(record)
	if len(fields) < 3 {
		return 0, AxisSpec{}, "too few fields"
	}
	code, err := strconv.ParseUint(fields[0], 16, 16)
	if err != nil {
		return 0, AxisSpec{}, "invalid axis code"
	}
	values := make([]int64, 5)
	for i := 1; i < len(fields) && i <= 5; i++ {
		v, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return 0, AxisSpec{}, "invalid axis value"
		}
		values[i-1] = v
	}
	return EventCode(code), AxisSpec{Min: values[0], Max: values[1], Fuzz: values[2], Flat: values[3], Resolution: values[4]}, ""
}

// DeviceBlock is the part of a `getevent -p` dump that belongs to one device.
type DeviceBlock struct {
	Path string
	Name string
	Text string
}

func (b DeviceBlock) hasAbsGroup() bool {
	for _, line := range strings.Split(b.Text, "\n") {
		if m := groupHeaderRegex.FindStringSubmatch(line); m != nil && m[1] == absGroup {
			return true
		}
	}
	return false
}

// SplitDeviceBlocks cuts a full `getevent -p` dump at its "add device" headers.
func SplitDeviceBlocks(dump string) []DeviceBlock {
	var blocks []DeviceBlock
	var current *DeviceBlock
	var text []string

	flush := func() {
		if current != nil {
			current.Text = strings.Join(text, "\n")
			blocks = append(blocks, *current)
		}
	}

	for _, raw := range strings.Split(dump, "\n") {
		line := strings.TrimRight(raw, "\r")
		if m := deviceHeaderRegex.FindStringSubmatch(line); m != nil {
			flush()
			current = &DeviceBlock{Path: m[1]}
			text = []string{line}
			continue
		}
		if current == nil {
			continue
		}
		if m := deviceNameRegex.FindStringSubmatch(line); m != nil && current.Name == "" {
			current.Name = m[1]
		}
		text = append(text, line)
	}
	flush()

	return blocks
}

// FindTouchBlock picks the device to drive: the first one whose ABS group has
// an MT X position, otherwise the first one with any ABS group.
func FindTouchBlock(dump string) (DeviceBlock, bool) {
	var fallback *DeviceBlock
	for _, block := range SplitDeviceBlocks(dump) {
		if !block.hasAbsGroup() {
			continue
		}
		model, err := ParseCapabilities(block.Text)
		if err == nil && model.HasMultiTouchPosition() {
			return block, true
		}
		if fallback == nil {
			b := block
			fallback = &b
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return DeviceBlock{}, false
}
