package input

import (
	"fmt"
	"strings"
	"unicode"
)

// Linux key codes used by the character table and the named buttons.
const (
	KEY_ESC        = 1
	KEY_MINUS      = 12
	KEY_EQUAL      = 13
	KEY_BACKSPACE  = 14
	KEY_TAB        = 15
	KEY_LEFTBRACE  = 26
	KEY_RIGHTBRACE = 27
	KEY_ENTER      = 28
	KEY_LEFTCTRL   = 29
	KEY_SEMICOLON  = 39
	KEY_APOSTROPHE = 40
	KEY_GRAVE      = 41
	KEY_LEFTSHIFT  = 42
	KEY_BACKSLASH  = 43
	KEY_COMMA      = 51
	KEY_DOT        = 52
	KEY_SLASH      = 53
	KEY_LEFTALT    = 56
	KEY_SPACE      = 57
	KEY_HOME       = 102
	KEY_UP         = 103
	KEY_LEFT       = 105
	KEY_RIGHT      = 106
	KEY_END        = 107
	KEY_DOWN       = 108
	KEY_DELETE     = 111
	KEY_VOLUMEDOWN = 114
	KEY_VOLUMEUP   = 115
	KEY_POWER      = 116
	KEY_LEFTMETA   = 125
	KEY_MENU       = 139
	KEY_BACK       = 158
	KEY_HOMEPAGE   = 172
	KEY_APPSELECT  = 580
)

// Modifier bits accepted by PressModifiers and ReleaseModifiers.
const (
	ModShift = 1 << 0
	ModCtrl  = 1 << 1
	ModMeta  = 1 << 2
	ModAlt   = 1 << 3
	ModWin   = 1 << 6
)

// KeyMode selects which halves of a keystroke TypeChar sends.
type KeyMode int

const (
	PressRelease KeyMode = iota
	PressOnly
	ReleaseOnly
)

func (m KeyMode) String() string {
	switch m {
	case PressRelease:
		return "press-release"
	case PressOnly:
		return "press-only"
	case ReleaseOnly:
		return "release-only"
	default:
		return fmt.Sprintf("KeyMode(%d)", int(m))
	}
}

var letterCodes = map[rune]int{
	'q': 16, 'w': 17, 'e': 18, 'r': 19, 't': 20, 'y': 21, 'u': 22, 'i': 23, 'o': 24, 'p': 25,
	'a': 30, 's': 31, 'd': 32, 'f': 33, 'g': 34, 'h': 35, 'j': 36, 'k': 37, 'l': 38,
	'z': 44, 'x': 45, 'c': 46, 'v': 47, 'b': 48, 'n': 49, 'm': 50,
}

var symbolCodes = map[rune]int{
	'1': 2, '2': 3, '3': 4, '4': 5, '5': 6, '6': 7, '7': 8, '8': 9, '9': 10, '0': 11,
	'-': KEY_MINUS, '=': KEY_EQUAL, '[': KEY_LEFTBRACE, ']': KEY_RIGHTBRACE,
	';': KEY_SEMICOLON, '\'': KEY_APOSTROPHE, '`': KEY_GRAVE, '\\': KEY_BACKSLASH,
	',': KEY_COMMA, '.': KEY_DOT, '/': KEY_SLASH, ' ': KEY_SPACE,
	'\n': KEY_ENTER, '\r': KEY_ENTER, '\t': KEY_TAB, '\b': KEY_BACKSPACE,

	// shifted symbols share the key of their unshifted counterpart
	'!': 2, '@': 3, '#': 4, '$': 5, '%': 6, '^': 7, '&': 8, '*': 9, '(': 10, ')': 11,
	'_': KEY_MINUS, '+': KEY_EQUAL, '{': KEY_LEFTBRACE, '}': KEY_RIGHTBRACE,
	':': KEY_SEMICOLON, '"': KEY_APOSTROPHE, '~': KEY_GRAVE, '|': KEY_BACKSLASH,
	'<': KEY_COMMA, '>': KEY_DOT, '?': KEY_SLASH,
}

const shiftedSymbols = "~!@#$%^&*()_+{}|:\"<>?"

// KeyForChar maps a character to its key code on a US layout.
func KeyForChar(r rune) (int, error) {
	if code, ok := letterCodes[unicode.ToLower(r)]; ok {
		return code, nil
	}
	if code, ok := symbolCodes[r]; ok {
		return code, nil
	}
	return 0, fmt.Errorf("no key for character %q", r)
}

// RequiresShift reports whether typing r needs the shift modifier.
func RequiresShift(r rune) bool {
	return unicode.IsUpper(r) || strings.ContainsRune(shiftedSymbols, r)
}

var buttonCodes = map[string]int{
	"home":        KEY_HOMEPAGE,
	"back":        KEY_BACK,
	"menu":        KEY_MENU,
	"app_switch":  KEY_APPSELECT,
	"power":       KEY_POWER,
	"volume_up":   KEY_VOLUMEUP,
	"volume_down": KEY_VOLUMEDOWN,
	"enter":       KEY_ENTER,
	"escape":      KEY_ESC,
	"delete":      KEY_DELETE,
	"dpad_up":     KEY_UP,
	"dpad_down":   KEY_DOWN,
	"dpad_left":   KEY_LEFT,
	"dpad_right":  KEY_RIGHT,
}

// KeyForButton maps a button name such as "home" or "VOLUME_UP" to its key code.
func KeyForButton(name string) (int, error) {
	code, ok := buttonCodes[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unsupported button key: %s", name)
	}
	return code, nil
}

var modifierNames = map[string]int{
	"shift":   ModShift,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"meta":    ModMeta,
	"alt":     ModAlt,
	"win":     ModWin,
}

// ParseModifiers turns names such as "shift" or "CTRL" into modifier bits.
func ParseModifiers(names []string) (int, error) {
	modifiers := 0
	for _, name := range names {
		bit, ok := modifierNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown modifier: %s", name)
		}
		modifiers |= bit
	}
	return modifiers, nil
}

type modifierKey struct {
	mask int
	code int
}

var modifierKeys = []modifierKey{
	{ModShift, KEY_LEFTSHIFT},
	{ModCtrl, KEY_LEFTCTRL},
	{ModAlt, KEY_LEFTALT},
	{ModMeta | ModWin, KEY_LEFTMETA},
}

func modifierCodes(modifiers int) []int {
	var codes []int
	for _, m := range modifierKeys {
		if modifiers&m.mask != 0 {
			codes = append(codes, m.code)
		}
	}
	return codes
}
