package devices

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mobile-next/touchbridge/utils"
	"gopkg.in/ini.v1"
)

// AVDInfo represents information about an Android Virtual Device
type AVDInfo struct {
	Name     string
	APILevel string
	AvdId    string
}

// apiLevelToVersion maps Android API levels to version strings
var apiLevelToVersion = map[string]string{
	"36": "16.0",
	"35": "15.0",
	"34": "14.0",
	"33": "13.0",
	"32": "12.1", // Android 12L
	"31": "12.0",
	"30": "11.0",
	"29": "10.0",
	"28": "9.0",
	"27": "8.1",
	"26": "8.0",
	"25": "7.1",
	"24": "7.0",
	"23": "6.0",
	"22": "5.1",
	"21": "5.0",
}

// convertAPILevelToVersion converts an API level to Android version string
func convertAPILevelToVersion(apiLevel string) string {
	if version, ok := apiLevelToVersion[apiLevel]; ok {
		return version
	}
	return apiLevel
}

// avdHome is $ANDROID_AVD_HOME, or ~/.android/avd
func avdHome() string {
	if dir := os.Getenv("ANDROID_AVD_HOME"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".android", "avd")
}

// getAVDDetails reads the AVD .ini files under avdDir, keyed by AVD name.
func getAVDDetails(avdDir string) (map[string]AVDInfo, error) {
	avdMap := make(map[string]AVDInfo)
	if avdDir == "" {
		return avdMap, nil
	}

	matches, err := filepath.Glob(filepath.Join(avdDir, "*.ini"))
	if err != nil {
		return avdMap, err
	}

	for _, iniFile := range matches {
		avdName := strings.TrimSuffix(filepath.Base(iniFile), ".ini")

		iniConfig, err := ini.Load(iniFile)
		if err != nil {
			utils.Verbose("Failed to read %s: %v", iniFile, err)
			continue
		}

		avdPath := iniConfig.Section("").Key("path").String()
		if avdPath == "" {
			continue
		}

		configPath := filepath.Join(avdPath, "config.ini")
		configData, err := ini.Load(configPath)
		if err != nil {
			utils.Verbose("Failed to read %s: %v", configPath, err)
			continue
		}

		section := configData.Section("")
		displayName := section.Key("avd.ini.displayname").String()
		if displayName == "" {
			continue
		}

		avdId := section.Key("AvdId").String()
		if avdId == "" {
			avdId = avdName
		}

		avdMap[avdName] = AVDInfo{
			Name:     displayName,
			APILevel: strings.TrimPrefix(section.Key("target").String(), "android-"),
			AvdId:    avdId,
		}
	}

	return avdMap, nil
}

// offlineEmulators lists the AVDs under avdDir whose id is not in running.
func offlineEmulators(avdDir string, running map[string]bool) ([]DeviceInfo, error) {
	avdDetails, err := getAVDDetails(avdDir)
	if err != nil {
		return nil, err
	}

	var infos []DeviceInfo
	for avdName, info := range avdDetails {
		if running[info.AvdId] {
			continue
		}

		displayName := info.Name
		if idx := strings.Index(displayName, "("); idx > 0 {
			displayName = strings.TrimSpace(displayName[:idx])
		}

		infos = append(infos, DeviceInfo{
			ID:       avdName,
			Name:     strings.ReplaceAll(displayName, "_", " "),
			Platform: "android",
			Type:     "emulator",
			State:    "offline",
			Version:  convertAPILevelToVersion(info.APILevel),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}
