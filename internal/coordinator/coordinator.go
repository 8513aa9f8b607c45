// Package coordinator routes share-control events from the renderer to
// host window management: it owns the "is sharing your screen" tracker
// overlay and answers capture-source enumeration requests.
package coordinator

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/glidecall/shell/internal/bridge"
	"github.com/glidecall/shell/internal/logging"
	"github.com/glidecall/shell/internal/permissions"
	"github.com/glidecall/shell/internal/sources"
	"github.com/glidecall/shell/internal/window"
)

var log = logging.L("coordinator")

// MainSurface is the primary conferencing surface the coordinator
// belongs to. The coordinator lives exactly as long as this surface.
type MainSurface interface {
	// Send delivers an envelope to the surface's message channel.
	Send(env bridge.Envelope) error

	// OnClosed registers a callback fired when the surface goes away.
	OnClosed(fn func())
}

// TrackerState is the tracker overlay's lifecycle state.
type TrackerState int

const (
	// TrackerAbsent: no overlay exists.
	TrackerAbsent TrackerState = iota
	// TrackerVisible: overlay shown, never focused.
	TrackerVisible
	// TrackerMinimized: overlay alive but minimized. There is no event
	// that restores it; un-minimizing is left to the OS window chrome.
	TrackerMinimized
)

func (s TrackerState) String() string {
	switch s {
	case TrackerVisible:
		return "visible"
	case TrackerMinimized:
		return "minimized"
	default:
		return "absent"
	}
}

// Options configures a coordinator.
type Options struct {
	// Identity is rendered by the tracker page as "<identity> is sharing
	// your screen".
	Identity string

	// BundleID identifies this app to the macOS permission system. Empty
	// disables permission hygiene.
	BundleID string

	// TrackerPage is the local path of the tracker's display page.
	TrackerPage string

	TrackerSize         window.Size
	TrackerBottomMargin int
}

// Deps are the injected host capabilities.
type Deps struct {
	Factory    window.Factory
	Enumerator sources.Enumerator

	// Reset clears a stale capture-permission denial. Nil uses the
	// platform default.
	Reset permissions.Resetter

	// Probe reports the current capture-permission state. Nil uses the
	// platform default.
	Probe func() permissions.Status
}

// Coordinator wires one main surface to share-control behavior. Create
// with New; the zero value is not usable.
type Coordinator struct {
	opts    Options
	main    MainSurface
	factory window.Factory
	enum    sources.Enumerator

	mu      sync.Mutex
	tracker window.Window
	state   TrackerState

	ctrlSub  *bridge.Subscription
	srcSub   *bridge.Subscription
	teardown sync.Once
}

// New builds a coordinator for the main surface, checks capture
// permission hygiene, and registers its two bridge handlers. The
// handlers are deregistered when the surface closes.
func New(bus *bridge.Bus, main MainSurface, opts Options, deps Deps) *Coordinator {
	c := &Coordinator{
		opts:    opts,
		main:    main,
		factory: deps.Factory,
		enum:    deps.Enumerator,
	}

	reset := deps.Reset
	if reset == nil {
		reset = permissions.ResetScreenCapture
	}
	probe := deps.Probe
	if probe == nil {
		probe = func() permissions.Status { return permissions.ProbeScreenCapture(nil) }
	}

	// A lingering denial means every future share silently produces black
	// frames. Clearing it is best-effort cleanup; failure is never
	// surfaced.
	if opts.BundleID != "" && probe() == permissions.StatusDenied {
		if err := reset(opts.BundleID); err != nil {
			log.Debug("permission reset failed", "bundle", opts.BundleID, logging.KeyError, err)
		}
	}

	c.ctrlSub = bus.Subscribe(bridge.ChannelControl, c.handleEvent)
	c.srcSub = bus.Respond(bridge.ChannelSources, c.handleGetSources)
	main.OnClosed(c.Teardown)

	return c
}

// Teardown deregisters the coordinator's bridge handlers. Safe to call
// repeatedly and with no tracker present.
func (c *Coordinator) Teardown() {
	c.teardown.Do(func() {
		c.ctrlSub.Close()
		c.srcSub.Close()
		log.Info("share coordinator detached")
	})
}

// TrackerState reports the overlay's current lifecycle state.
func (c *Coordinator) TrackerState() TrackerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// handleGetSources forwards enumeration to the host capability with the
// caller's options and returns its result unchanged.
func (c *Coordinator) handleGetSources(ctx context.Context, env bridge.Envelope) (any, error) {
	var opts sources.Options
	if len(env.Payload) > 0 {
		if err := decodeOptions(env.Payload, &opts); err != nil {
			return nil, err
		}
	}
	return c.enum.Sources(ctx, opts)
}

// trackerURL builds the tracker page's file URL, carrying the identity
// as a query parameter.
func (c *Coordinator) trackerURL() string {
	path := filepath.ToSlash(c.opts.TrackerPage)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Scheme:   "file",
		Path:     path,
		RawQuery: url.Values{"identity": {c.opts.Identity}}.Encode(),
	}
	return u.String()
}
