//go:build !windows

package sources

import "context"

// macOS enumeration goes through ScreenCaptureKit in the cgo build;
// this stub keeps non-Windows builds compiling without it.

func newPlatformEnumerator() Enumerator {
	return stubEnumerator{}
}

type stubEnumerator struct{}

func (stubEnumerator) Sources(context.Context, Options) ([]Source, error) {
	return nil, ErrNotSupported
}
