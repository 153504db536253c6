package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"barcodescanner/config"
)

// Default file names placed next to the executable
const (
	DefaultArchiveName = "scans.db"
	DefaultLogName     = "barcodescanner.log"
)

// GetDefaultPath returns name resolved against the executable's directory
func GetDefaultPath(name string) string {
	// Get the executable path
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return name
	}

	// Return the path in the same directory as the executable
	return filepath.Join(filepath.Dir(exePath), name)
}

// GetDefaultConfigPath returns the config file path next to the executable
func GetDefaultConfigPath() string {
	return GetDefaultPath(config.FileName)
}

// GetDefaultArchivePath returns the archive database path next to the executable
func GetDefaultArchivePath() string {
	return GetDefaultPath(DefaultArchiveName)
}

// FileExists reports whether path names an existing regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ParseCooldown parses a cooldown entered in the selector. Values outside
// 0..10 are clamped; unparseable text falls back to the previous value.
func ParseCooldown(text string, previous int) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return previous, fmt.Errorf("invalid cooldown value '%s', keeping %d", text, previous)
	}
	return ClampCooldown(parsed), nil
}

// ClampCooldown limits seconds to the selector range
func ClampCooldown(seconds int) int {
	if seconds < config.MinCooldown {
		return config.MinCooldown
	}
	if seconds > config.MaxCooldown {
		return config.MaxCooldown
	}
	return seconds
}

// Truncate shortens text to at most max runes, marking the cut with "..."
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
