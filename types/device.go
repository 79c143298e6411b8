package types

// Location is a point in logical screen pixels.
type Location struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size represents width and height dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DeviceProperties describes a device as observed once at bring-up.
type DeviceProperties struct {
	AndroidVersion string `json:"androidVersion"`
	Brand          string `json:"brand"`
	Manufacturer   string `json:"manufacturer"`
	Model          string `json:"model"`
	Name           string `json:"name"`
	DisplayWidth   int    `json:"displayWidth"`
	DisplayHeight  int    `json:"displayHeight"`
}

func (p DeviceProperties) DisplaySize() Size {
	return Size{Width: p.DisplayWidth, Height: p.DisplayHeight}
}

// TouchMove moves one touch slot to Dest. A nil Src starts from the slot's
// current cursor.
type TouchMove struct {
	Slot int       `json:"slot"`
	Src  *Location `json:"src,omitempty"`
	Dest Location  `json:"dest"`
}

// TouchState is a snapshot of a single touch slot.
type TouchState struct {
	Slot     int  `json:"slot"`
	X        int  `json:"x"`
	Y        int  `json:"y"`
	Touching bool `json:"touching"`
}
