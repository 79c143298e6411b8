package commands

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

type DoctorInfo struct {
	TouchbridgeVersion string `json:"touchbridge_version"`
	OS                 string `json:"os"`
	OSVersion          string `json:"os_version"`
	AndroidHome        string `json:"android_home"`
	ADBPath            string `json:"adb_path"`
	ADBVersion         string `json:"adb_version,omitempty"`
	ConfigFile         string `json:"config_file,omitempty"`
	OnlineDevices      int    `json:"online_devices"`
	DevicesError       string `json:"devices_error,omitempty"`
}

func getAndroidSdkPath() string {
	sdkPath := os.Getenv("ANDROID_HOME")
	if sdkPath != "" {
		if _, err := os.Stat(sdkPath); err == nil {
			return sdkPath
		}
	}

	homeDir := os.Getenv("HOME")
	if homeDir != "" {
		for _, candidate := range []string{
			filepath.Join(homeDir, "Library", "Android", "sdk"),
			filepath.Join(homeDir, "Android", "Sdk"),
		} {
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}

	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			defaultPath := filepath.Join(localAppData, "Android", "Sdk")
			if _, err := os.Stat(defaultPath); err == nil {
				return defaultPath
			}
		}
	}

	return ""
}

// resolveAdbPath prefers the configured adb, then the SDK's platform-tools, then PATH.
func resolveAdbPath(configured string) string {
	if configured != "" && configured != "adb" {
		if path, err := exec.LookPath(configured); err == nil {
			return path
		}
	}

	sdkPath := getAndroidSdkPath()
	if sdkPath != "" {
		adbPath := filepath.Join(sdkPath, "platform-tools", "adb")
		if runtime.GOOS == "windows" {
			adbPath += ".exe"
		}
		if _, err := os.Stat(adbPath); err == nil {
			return adbPath
		}
	}

	adbPath, err := exec.LookPath("adb")
	if err == nil {
		return adbPath
	}

	return ""
}

func getAdbVersion(ctx context.Context, adbPath string) string {
	if adbPath == "" {
		return ""
	}

	output, err := exec.CommandContext(ctx, adbPath, "version").CombinedOutput()
	if err != nil {
		return ""
	}
	return parseAdbVersion(string(output))
}

func parseAdbVersion(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Android Debug Bridge version") {
			return strings.TrimSpace(line)
		}
	}
	return strings.TrimSpace(output)
}

func getOSVersion() string {
	switch runtime.GOOS {
	case "darwin":
		output, err := exec.Command("sw_vers", "-productVersion").CombinedOutput()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(output))
	case "windows":
		output, err := exec.Command("cmd", "/c", "ver").CombinedOutput()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(output))
	case "linux":
		data, err := os.ReadFile("/etc/os-release")
		if err != nil {
			return ""
		}
		return parseOSRelease(string(data))
	default:
		return ""
	}
}

func parseOSRelease(data string) string {
	for _, line := range strings.Split(data, "\n") {
		if strings.HasPrefix(line, "PRETTY_NAME=") {
			return strings.Trim(strings.TrimPrefix(line, "PRETTY_NAME="), "\"")
		}
	}
	return ""
}

// DoctorCommand performs system diagnostics and returns information about the environment
func DoctorCommand(ctx context.Context, version string) *CommandResponse {
	cfg := Settings()
	info := DoctorInfo{
		TouchbridgeVersion: version,
		OS:                 runtime.GOOS,
		OSVersion:          getOSVersion(),
		AndroidHome:        os.Getenv("ANDROID_HOME"),
		ADBPath:            resolveAdbPath(cfg.Adb.Path),
		ConfigFile:         cfg.Source,
	}

	if info.ADBPath != "" {
		info.ADBVersion = getAdbVersion(ctx, info.ADBPath)

		entries, err := listDevices(ctx)
		if err != nil {
			info.DevicesError = err.Error()
		}
		for _, entry := range entries {
			if entry.Online() {
				info.OnlineDevices++
			}
		}
	}

	return NewSuccessResponse(info)
}
