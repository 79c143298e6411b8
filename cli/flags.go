package cli

var (
	verbose    bool
	configPath string

	// all commands
	deviceId string

	// for screenshot command
	screenshotOutputPath  string
	screenshotFormat      string
	screenshotJpegQuality int

	// for io commands
	gestureDuration int
	keyModifiers    []string
	touchSlot       int

	// for io touches command
	touchesWatch    bool
	touchesInterval int
)
