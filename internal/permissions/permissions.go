// Package permissions models the host's screen-capture permission state
// and the one remediation this shell performs: resetting a stale denial
// so the OS can prompt again.
package permissions

import (
	"os"
	"runtime"
	"strings"

	"github.com/glidecall/shell/internal/logging"
)

var log = logging.L("permissions")

// Status enumerates coarse permission results for macOS-style prompts.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that permission was previously granted.
	StatusGranted Status = "granted"
	// StatusDenied indicates the user has explicitly denied access.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not gated on this
	// platform.
	StatusUnavailable Status = "unavailable"
)

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// envOverride lets operators and tests pin the probe result.
const envOverride = "GLIDECALL_SCREEN_CAPTURE"

// ProbeScreenCapture reports the coarse screen-capture permission state.
// macOS gates screen recording per-app; elsewhere capture is ungated.
func ProbeScreenCapture(lookup LookupEnvFunc) Status {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup(envOverride); ok {
		return interpretFlag(value)
	}
	if runtime.GOOS == "darwin" {
		return probeDarwin()
	}
	return StatusUnavailable
}

func interpretFlag(value string) Status {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "granted", "allow", "allowed", "yes", "true":
		return StatusGranted
	case "denied", "no", "false", "blocked":
		return StatusDenied
	case "prompt", "ask":
		return StatusPromptRequired
	case "unavailable", "unsupported":
		return StatusUnavailable
	default:
		return StatusUnknown
	}
}

// Resetter clears a previous screen-capture denial for the given bundle
// id so the next capture attempt re-prompts. Implementations are
// best-effort: a failed reset is logged, never surfaced.
type Resetter func(bundleID string) error
