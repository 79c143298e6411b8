package input

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/mobile-next/touchbridge/utils"
)

// startMonitor follows the live event feed of the touch device so slot 0
// tracks touches made by someone other than this Robot.
func (r *Robot) startMonitor() {
	ctx, cancel := context.WithCancel(context.Background())
	r.monitorCancel = cancel
	r.monitorDone = make(chan struct{})

	go func() {
		defer close(r.monitorDone)

		stream, err := r.exec.Execute(ctx, "getevent", r.devicePath)
		if err != nil {
			if ctx.Err() == nil {
				utils.Warn("event monitor for %s did not start: %v", r.devicePath, err)
			}
			return
		}

		// closing the stream unblocks the scanner when the robot closes
		closeStream := sync.OnceValue(stream.Close)
		stopped := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = closeStream()
			case <-stopped:
			}
		}()

		r.consumeEvents(stream)
		close(stopped)
		err = closeStream()

		switch {
		case ctx.Err() != nil:
			utils.Verbose("event monitor for %s stopped", r.devicePath)
		case err != nil:
			utils.Warn("event monitor for %s ended: %v", r.devicePath, err)
		default:
			utils.Verbose("event monitor for %s ended", r.devicePath)
		}
		cancel()
	}()
}

func (r *Robot) consumeEvents(feed io.Reader) {
	scanner := bufio.NewScanner(feed)
	currentSlot := int64(0)
	for scanner.Scan() {
		ev, ok := parseEventLine(scanner.Text())
		if !ok {
			continue
		}
		r.applyFeedback(&currentSlot, ev)
	}
}

// parseEventLine reads the last three hex fields of a getevent line. The
// middle and last are the code and value. The first is the event type when
// it is a four digit type below EV_CNT, otherwise it is a timestamp and the
// event is taken as EV_ABS. Lines without three hex fields are ignored.
func parseEventLine(line string) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Event{}, false
	}
	fields = fields[len(fields)-3:]

	lead, err := strconv.ParseUint(fields[0], 16, 64)
	if err != nil {
		return Event{}, false
	}
	code, err := strconv.ParseUint(fields[1], 16, 16)
	if err != nil {
		return Event{}, false
	}
	value, err := strconv.ParseUint(fields[2], 16, 32)
	if err != nil {
		return Event{}, false
	}

	typ := EV_ABS
	if len(fields[0]) == 4 && lead < evCount {
		typ = EventType(lead)
	}

	return Event{
		Type:  typ,
		Code:  EventCode(code),
		Value: int64(int32(uint32(value))),
	}, true
}

func (r *Robot) applyFeedback(currentSlot *int64, ev Event) {
	if ev.Type != EV_ABS {
		return
	}

	switch ev.Code {
	case ABS_MT_SLOT:
		*currentSlot = ev.Value
		return
	case ABS_MT_POSITION_X, ABS_MT_POSITION_Y:
	default:
		return
	}

	// only slot 0 is followed, and only while this robot is not driving it
	if *currentSlot != 0 {
		return
	}
	s := r.slots[0]
	if s.touching.Load() {
		return
	}

	coord, err := r.ValueToCoord(ev.Code, ev.Value)
	if err != nil {
		return
	}

	s.mu.Lock()
	if ev.Code == ABS_MT_POSITION_X {
		s.x = clamp(coord, 0, r.width-1)
	} else {
		s.y = clamp(coord, 0, r.height-1)
	}
	s.mu.Unlock()
}
