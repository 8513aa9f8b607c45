//go:build darwin

package permissions

import (
	"fmt"
	"os/exec"
)

// probeDarwin would ask TCC via the cgo CoreGraphics shim; without it the
// state is unknowable from a plain process, so callers see the prompt
// default and env overrides remain authoritative.
func probeDarwin() Status {
	return StatusPromptRequired
}

// ResetScreenCapture drops the TCC screen-recording entry for the bundle
// so macOS prompts again on the next capture attempt. Fire-and-forget:
// the command is started and reaped in the background, and tccutil's own
// exit status is only ever logged.
func ResetScreenCapture(bundleID string) error {
	if bundleID == "" {
		return fmt.Errorf("permissions: empty bundle id")
	}

	cmd := exec.Command("tccutil", "reset", "ScreenCapture", bundleID)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("permissions: start tccutil: %w", err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("tccutil reset failed", "bundle", bundleID, "error", err)
		} else {
			log.Info("screen capture permission reset", "bundle", bundleID)
		}
	}()

	return nil
}
