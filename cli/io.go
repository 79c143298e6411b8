package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mobile-next/touchbridge/commands"
	"github.com/mobile-next/touchbridge/devices/input"
	"github.com/spf13/cobra"
)

var ioCmd = &cobra.Command{
	Use:   "io",
	Short: "Input operations with devices",
	Long:  `Synthesize taps, swipes, multi-touch contacts, keys and text on a device.`,
}

// parseCoordinates reads n comma separated integers, as in "x,y".
func parseCoordinates(s string, names ...string) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != len(names) {
		return nil, fmt.Errorf("invalid coordinate format. Expected '%s', got '%s'", strings.Join(names, ","), s)
	}

	values := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate values. %s must be integers. Got %s='%s'", strings.Join(names, ", "), names[i], part)
		}
		values[i] = v
	}
	return values, nil
}

func coordinateError(err error) error {
	return printResponse(commands.NewErrorResponse(err))
}

var ioTapCmd = &cobra.Command{
	Use:   "tap [x,y]",
	Short: "Tap on a device screen at the given coordinates",
	Long:  `Sends a tap event to the specified device at the given x,y coordinates. Coordinates should be provided as a single string "x,y".`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coords, err := parseCoordinates(args[0], "x", "y")
		if err != nil {
			return coordinateError(err)
		}

		return printResponse(commands.TapCommand(cmd.Context(), commands.TapRequest{
			DeviceID: deviceId,
			X:        coords[0],
			Y:        coords[1],
			Duration: gestureDuration,
		}))
	},
}

var ioLongPressCmd = &cobra.Command{
	Use:   "longpress [x,y]",
	Short: "Long press on a device screen at the given coordinates",
	Long:  `Holds a touch at the given x,y coordinates for --duration milliseconds (one second by default).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coords, err := parseCoordinates(args[0], "x", "y")
		if err != nil {
			return coordinateError(err)
		}

		return printResponse(commands.LongPressCommand(cmd.Context(), commands.LongPressRequest{
			DeviceID: deviceId,
			X:        coords[0],
			Y:        coords[1],
			Duration: gestureDuration,
		}))
	},
}

var ioSwipeCmd = &cobra.Command{
	Use:   "swipe [x1,y1,x2,y2]",
	Short: "Swipe on a device screen from one point to another",
	Long:  `Drags a touch from x1,y1 to x2,y2 with an ease-out curve. Coordinates should be provided as a single string "x1,y1,x2,y2".`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coords, err := parseCoordinates(args[0], "x1", "y1", "x2", "y2")
		if err != nil {
			return coordinateError(err)
		}

		return printResponse(commands.SwipeCommand(cmd.Context(), commands.SwipeRequest{
			DeviceID: deviceId,
			X1:       coords[0],
			Y1:       coords[1],
			X2:       coords[2],
			Y2:       coords[3],
			Duration: gestureDuration,
		}))
	},
}

var ioTextCmd = &cobra.Command{
	Use:   "text [text]",
	Short: "Type text on a device",
	Long:  `Types text key by key on a US keyboard layout. Characters without a key are rejected before anything is sent.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.TextCommand(cmd.Context(), commands.TextRequest{
			DeviceID: deviceId,
			Text:     args[0],
		}))
	},
}

var ioKeyCmd = &cobra.Command{
	Use:   "key [button|code]",
	Short: "Press a button or key code on a device",
	Long:  `Presses a named button (e.g. "home", "back", "volume_up") or a numeric Linux key code, optionally holding modifiers around it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modifiers, err := input.ParseModifiers(keyModifiers)
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}

		req := commands.KeyRequest{
			DeviceID:  deviceId,
			Modifiers: modifiers,
		}
		if code, err := strconv.Atoi(args[0]); err == nil {
			req.Code = code
		} else {
			req.Button = args[0]
		}

		return printResponse(commands.KeyCommand(cmd.Context(), req))
	},
}

var ioTouchCmd = &cobra.Command{
	Use:   "touch [down|move|up] [x,y]",
	Short: "Drive a single touch slot",
	Long:  `Puts a contact down, moves it or lifts it on the slot given by --slot. Combine several slots for multi-finger gestures against a running server.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := commands.TouchRequest{
			DeviceID: deviceId,
			Slot:     touchSlot,
			Action:   args[0],
			Duration: gestureDuration,
		}

		if args[0] != "up" {
			if len(args) != 2 {
				return coordinateError(fmt.Errorf("'%s' needs coordinates as 'x,y'", args[0]))
			}
			coords, err := parseCoordinates(args[1], "x", "y")
			if err != nil {
				return coordinateError(err)
			}
			req.X, req.Y = coords[0], coords[1]
		}

		return printResponse(commands.TouchCommand(cmd.Context(), req))
	},
}

var ioTouchesCmd = &cobra.Command{
	Use:   "touches",
	Short: "Show the state of every touch slot",
	Long:  `Reports each slot as last synthesized. Slot 0 also follows touches made on the device itself. With --watch the state is printed until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		req := commands.TouchesRequest{DeviceID: deviceId}

		if !touchesWatch {
			return printResponse(commands.TouchesCommand(ctx, req))
		}

		ticker := time.NewTicker(time.Duration(touchesInterval) * time.Millisecond)
		defer ticker.Stop()

		for {
			response := commands.TouchesCommand(ctx, req)
			if err := printResponse(response); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(ioCmd)

	ioCmd.AddCommand(ioTapCmd)
	ioCmd.AddCommand(ioLongPressCmd)
	ioCmd.AddCommand(ioSwipeCmd)
	ioCmd.AddCommand(ioTextCmd)
	ioCmd.AddCommand(ioKeyCmd)
	ioCmd.AddCommand(ioTouchCmd)
	ioCmd.AddCommand(ioTouchesCmd)

	addDeviceFlag(ioTapCmd, "tap on")
	addDeviceFlag(ioLongPressCmd, "long press on")
	addDeviceFlag(ioSwipeCmd, "swipe on")
	addDeviceFlag(ioTextCmd, "send keys to")
	addDeviceFlag(ioKeyCmd, "press the key on")
	addDeviceFlag(ioTouchCmd, "touch")
	addDeviceFlag(ioTouchesCmd, "watch")

	ioTapCmd.Flags().IntVar(&gestureDuration, "duration", 0, "how long the contact is held, in milliseconds")
	ioLongPressCmd.Flags().IntVar(&gestureDuration, "duration", 0, "how long the contact is held, in milliseconds (default 1000)")
	ioSwipeCmd.Flags().IntVar(&gestureDuration, "duration", 0, "swipe duration in milliseconds (default from config)")
	ioTouchCmd.Flags().IntVar(&gestureDuration, "duration", 0, "animate a move over this many milliseconds")
	ioTouchCmd.Flags().IntVar(&touchSlot, "slot", 0, "touch slot to drive")
	ioKeyCmd.Flags().StringSliceVar(&keyModifiers, "modifier", nil, "modifiers held around the key (shift, ctrl, alt, meta, win)")
	ioTouchesCmd.Flags().BoolVarP(&touchesWatch, "watch", "w", false, "keep printing the touch state")
	ioTouchesCmd.Flags().IntVar(&touchesInterval, "interval", 250, "polling interval in milliseconds for --watch")
}
