package shared

import (
	"fmt"
	"os"
)

// DebugPrint prints debug messages when debug mode is enabled
func DebugPrint(debug bool, format string, args ...interface{}) {
	if debug {
		fmt.Printf("DEBUG: "+format+"\n", args...)
	}
}

// IsDebugMode checks if debug mode is enabled via environment variable
func IsDebugMode() bool {
	v := os.Getenv("SPOTIFY2MP3_DEBUG")
	return v == "1" || v == "true"
}
