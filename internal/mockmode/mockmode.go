package mockmode

import (
	"os"
	"strings"
)

// IsEnabled reports whether Cordon is running in mock mode.
//
// This intentionally reads the environment variable instead of importing the
// full config package, to avoid dependency cycles in low-level packages.
func IsEnabled() bool {
	return strings.TrimSpace(os.Getenv("CORDON_MOCK_MODE")) == "true"
}
