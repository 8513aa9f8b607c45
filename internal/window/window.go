// Package window abstracts host window management so share-control logic
// can be tested without a real GUI session.
package window

import "errors"

// ErrNotSupported is returned when native window management is not
// available on this platform/build.
var ErrNotSupported = errors.New("window: not supported on this platform")

// Rect is a screen-space rectangle in physical pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Size is a width/height pair in physical pixels.
type Size struct {
	Width  int
	Height int
}

// Options describes an overlay window at creation time.
type Options struct {
	Title  string
	Bounds Rect

	Frameless   bool
	Resizable   bool
	AlwaysOnTop bool
	SkipTaskbar bool

	// Visible false defers showing until the ready callback; the overlay
	// must never flash or steal focus while its page is still loading.
	Visible bool

	// IsolatedContext denies the window's page direct host access; it can
	// reach the host only through the bridge, like any other surface.
	IsolatedContext bool
}

// Window is a live overlay window.
type Window interface {
	// ShowInactive makes the window visible without giving it input focus.
	ShowInactive() error

	// Minimize hides the window into the taskbar/dock without destroying it.
	Minimize() error

	// Close destroys the window. Closing an already-closed window is a
	// no-op.
	Close() error

	// SetCaptureExclusion marks the window invisible to screen capture.
	// Only valid when the factory reports support.
	SetCaptureExclusion(excluded bool) error

	// LoadURL points the window's embedded surface at a page.
	LoadURL(url string) error

	// OnReady registers a one-shot callback fired when the window's
	// content is ready to show. A window closed before ready never fires.
	OnReady(fn func())

	// OnClosed registers a callback fired when the window is destroyed by
	// any path, including the user or the OS.
	OnClosed(fn func())
}

// Display is a connected display output.
type Display interface {
	// WorkArea returns the usable desktop area, excluding taskbars/docks.
	WorkArea() (Rect, error)
}

// Factory creates overlay windows on the host.
type Factory interface {
	CreateOverlay(opts Options) (Window, error)
	PrimaryDisplay() (Display, error)

	// CaptureExclusionSupported reports whether windows created by this
	// factory can be hidden from screen capture. When false the overlay
	// stays capturable; a black rectangle in the shared picture is worse
	// than a visible tracker.
	CaptureExclusionSupported() bool
}

// NewFactory returns the platform window factory. On platforms without a
// native implementation the returned factory's CreateOverlay fails with
// ErrNotSupported.
func NewFactory() Factory {
	return newPlatformFactory()
}
