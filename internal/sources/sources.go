// Package sources enumerates the screens and windows a share session can
// capture.
package sources

import (
	"context"
	"errors"

	"github.com/glidecall/shell/internal/logging"
)

var log = logging.L("sources")

// ErrNotSupported is returned when enumeration is not available on this
// platform/build.
var ErrNotSupported = errors.New("sources: not supported on this platform")

// Source kinds.
const (
	KindScreen = "screen"
	KindWindow = "window"
)

// Source describes one capturable target, in the shape the renderer's
// source picker consumes.
type Source struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Thumbnail []byte `json:"thumbnail,omitempty"` // JPEG, possibly empty
}

// Options narrows an enumeration request. The coordinator passes these
// through from the caller untouched.
type Options struct {
	// Types limits the result to the listed kinds. Empty means both
	// screens and windows.
	Types []string `json:"types,omitempty"`

	// ThumbnailWidth/Height bound thumbnail dimensions. Zero disables
	// thumbnails entirely.
	ThumbnailWidth  int `json:"thumbnailWidth,omitempty"`
	ThumbnailHeight int `json:"thumbnailHeight,omitempty"`
}

func (o Options) wants(kind string) bool {
	if len(o.Types) == 0 {
		return true
	}
	for _, t := range o.Types {
		if t == kind {
			return true
		}
	}
	return false
}

// Enumerator lists capturable sources. Results are ordered: screens
// first in display order, then windows in z-order.
type Enumerator interface {
	Sources(ctx context.Context, opts Options) ([]Source, error)
}

// New returns the platform enumerator. On platforms without a native
// implementation the returned enumerator fails with ErrNotSupported.
func New() Enumerator {
	return newPlatformEnumerator()
}
