//go:build !darwin

package permissions

func probeDarwin() Status {
	return StatusUnavailable
}

// ResetScreenCapture is a no-op off macOS: no other supported platform
// holds a per-app capture denial to clear.
func ResetScreenCapture(bundleID string) error {
	log.Debug("screen capture reset skipped, not gated on this platform", "bundle", bundleID)
	return nil
}
