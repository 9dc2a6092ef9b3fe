package core

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user data directory that holds the generation
// history database and log files.
const AppName = "wanvidgen"

// GetDataDirectory returns the platform-specific data directory.
//
//   - Windows: %APPDATA%\wanvidgen
//   - Linux, macOS: ~/.wanvidgen
//
// The directory is not created here; the history store creates it on
// first open.
func GetDataDirectory() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return AppName
			}
			return filepath.Join(home, "AppData", "Roaming", AppName)
		}
		return filepath.Join(appData, AppName)
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			// No resolvable home, fall back to the working directory.
			return "." + AppName
		}
		return filepath.Join(home, "."+AppName)
	}
}

