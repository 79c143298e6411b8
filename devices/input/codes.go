package input

import "fmt"

// EventType is the evdev event type written as the second sendevent argument.
type EventType uint16

const (
	EV_SYN EventType = 0x00
	EV_KEY EventType = 0x01
	EV_ABS EventType = 0x03

	// evCount is EV_CNT, one past the highest event type.
	evCount = 0x20
)

// EventCode is an evdev code, interpreted within its EventType.
type EventCode uint16

const (
	SYN_REPORT EventCode = 0x00
)

const (
	ABS_MT_SLOT        EventCode = 0x2f
	ABS_MT_TOUCH_MAJOR EventCode = 0x30
	ABS_MT_TOUCH_MINOR EventCode = 0x31
	ABS_MT_WIDTH_MAJOR EventCode = 0x32
	ABS_MT_WIDTH_MINOR EventCode = 0x33
	ABS_MT_ORIENTATION EventCode = 0x34
	ABS_MT_POSITION_X  EventCode = 0x35
	ABS_MT_POSITION_Y  EventCode = 0x36
	ABS_MT_TOOL_TYPE   EventCode = 0x37
	ABS_MT_BLOB_ID     EventCode = 0x38
	ABS_MT_TRACKING_ID EventCode = 0x39
	ABS_MT_PRESSURE    EventCode = 0x3a
	ABS_MT_DISTANCE    EventCode = 0x3b
)

// Key values for EV_KEY events.
const (
	KeyRelease int64 = 0
	KeyPress   int64 = 1
)

const (
	// trackingIDNone ends a contact; the kernel reads it as -1
	trackingIDNone int64 = 0xffffffff

	touchMajorDown int64 = 127
	pressureDown   int64 = 127
)

var absNames = map[EventCode]string{
	ABS_MT_SLOT:        "ABS_MT_SLOT",
	ABS_MT_TOUCH_MAJOR: "ABS_MT_TOUCH_MAJOR",
	ABS_MT_TOUCH_MINOR: "ABS_MT_TOUCH_MINOR",
	ABS_MT_WIDTH_MAJOR: "ABS_MT_WIDTH_MAJOR",
	ABS_MT_WIDTH_MINOR: "ABS_MT_WIDTH_MINOR",
	ABS_MT_ORIENTATION: "ABS_MT_ORIENTATION",
	ABS_MT_POSITION_X:  "ABS_MT_POSITION_X",
	ABS_MT_POSITION_Y:  "ABS_MT_POSITION_Y",
	ABS_MT_TOOL_TYPE:   "ABS_MT_TOOL_TYPE",
	ABS_MT_BLOB_ID:     "ABS_MT_BLOB_ID",
	ABS_MT_TRACKING_ID: "ABS_MT_TRACKING_ID",
	ABS_MT_PRESSURE:    "ABS_MT_PRESSURE",
	ABS_MT_DISTANCE:    "ABS_MT_DISTANCE",
}

// AbsName returns the symbolic name of an absolute axis, or its hex code.
func AbsName(code EventCode) string {
	if name, ok := absNames[code]; ok {
		return name
	}
	return fmt.Sprintf("ABS_%04x", uint16(code))
}

// Event is one sendevent invocation.
type Event struct {
	Type  EventType
	Code  EventCode
	Value int64
}

func (e Event) args(devicePath string) []string {
	return []string{
		devicePath,
		fmt.Sprintf("%d", e.Type),
		fmt.Sprintf("%d", e.Code),
		fmt.Sprintf("%d", e.Value),
	}
}

func absEvent(code EventCode, value int64) Event {
	return Event{Type: EV_ABS, Code: code, Value: value}
}

func keyEvent(code int, value int64) Event {
	return Event{Type: EV_KEY, Code: EventCode(code), Value: value}
}

var syncEvent = Event{Type: EV_SYN, Code: SYN_REPORT, Value: 0}
