//go:build !windows

package window

// A production macOS build manages the overlay as an NSPanel via the cgo
// AppKit shim; this stub keeps non-Windows builds compiling without it.
// Linux shells run the overlay inside the renderer host instead.

func newPlatformFactory() Factory {
	return stubFactory{}
}

type stubFactory struct{}

func (stubFactory) CreateOverlay(Options) (Window, error) {
	return nil, ErrNotSupported
}

func (stubFactory) PrimaryDisplay() (Display, error) {
	return nil, ErrNotSupported
}

func (stubFactory) CaptureExclusionSupported() bool {
	return false
}
