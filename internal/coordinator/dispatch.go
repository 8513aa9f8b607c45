package coordinator

import (
	"encoding/json"
	"fmt"

	"github.com/glidecall/shell/internal/bridge"
	"github.com/glidecall/shell/internal/logging"
	"github.com/glidecall/shell/internal/window"
)

// eventHandlers maps control event names to their handlers. Unknown
// names are logged and dropped so a newer renderer cannot wedge an
// older shell.
var eventHandlers = map[string]func(*Coordinator, bridge.Envelope){
	bridge.EventOpenTracker:  (*Coordinator).handleOpenTracker,
	bridge.EventCloseTracker: (*Coordinator).handleCloseTracker,
	bridge.EventHideTracker:  (*Coordinator).handleHideTracker,
	bridge.EventStopShare:    (*Coordinator).handleStopShare,

	// Transport chatter on the same channel; not ours to act on.
	bridge.EventSurfaceClosed: func(*Coordinator, bridge.Envelope) {},
}

func (c *Coordinator) handleEvent(env bridge.Envelope) {
	h, ok := eventHandlers[env.Name]
	if !ok {
		log.Warn("unhandled control event", logging.KeyEvent, env.Name, logging.KeyChannel, env.Channel)
		return
	}
	h(c, env)
}

// handleOpenTracker creates the tracker overlay at the bottom center of
// the primary display's work area. A second open while one exists is a
// no-op; the existing overlay keeps its state.
func (c *Coordinator) handleOpenTracker(_ bridge.Envelope) {
	c.mu.Lock()
	if c.tracker != nil {
		c.mu.Unlock()
		log.Debug("tracker already open", "state", c.state.String())
		return
	}

	win, err := c.createTracker()
	if err != nil {
		c.mu.Unlock()
		log.Error("tracker creation failed", logging.KeyError, err)
		return
	}
	c.tracker = win
	c.mu.Unlock()

	// Callbacks are registered after the lock drops: a window already
	// ready or already closed fires them inline.
	win.OnReady(func() { c.trackerReady(win) })
	win.OnClosed(func() { c.trackerGone(win) })

	if c.factory.CaptureExclusionSupported() {
		if err := win.SetCaptureExclusion(true); err != nil {
			log.Warn("capture exclusion failed, tracker will appear in shares", logging.KeyError, err)
		}
	} else {
		log.Debug("capture exclusion unsupported on this host")
	}

	if err := win.LoadURL(c.trackerURL()); err != nil {
		log.Warn("tracker page load failed", logging.KeyError, err)
	}
}

func (c *Coordinator) createTracker() (window.Window, error) {
	display, err := c.factory.PrimaryDisplay()
	if err != nil {
		return nil, fmt.Errorf("coordinator: primary display: %w", err)
	}
	work, err := display.WorkArea()
	if err != nil {
		return nil, fmt.Errorf("coordinator: work area: %w", err)
	}

	bounds := window.OverlayBounds(work, c.opts.TrackerSize, c.opts.TrackerBottomMargin)
	win, err := c.factory.CreateOverlay(window.Options{
		Title:           "Screen sharing",
		Bounds:          bounds,
		Frameless:       true,
		Resizable:       false,
		AlwaysOnTop:     true,
		SkipTaskbar:     true,
		Visible:         false,
		IsolatedContext: true,
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: create overlay: %w", err)
	}
	return win, nil
}

// trackerReady shows the overlay once its page has rendered. Shown
// without activation: the user's focus stays wherever it was.
func (c *Coordinator) trackerReady(win window.Window) {
	c.mu.Lock()
	if c.tracker != win {
		c.mu.Unlock()
		return
	}
	c.state = TrackerVisible
	c.mu.Unlock()

	if err := win.ShowInactive(); err != nil {
		log.Warn("tracker show failed", logging.KeyError, err)
	}
	log.Info("tracker shown")
}

// trackerGone clears the overlay reference once the window is destroyed,
// whether by handleCloseTracker or by the OS.
func (c *Coordinator) trackerGone(win window.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracker != win {
		return
	}
	c.tracker = nil
	c.state = TrackerAbsent
	log.Debug("tracker destroyed")
}

// handleCloseTracker destroys the overlay. Closing with no overlay is a
// no-op.
func (c *Coordinator) handleCloseTracker(_ bridge.Envelope) {
	c.mu.Lock()
	win := c.tracker
	c.mu.Unlock()
	if win == nil {
		return
	}
	if err := win.Close(); err != nil {
		log.Warn("tracker close failed", logging.KeyError, err)
	}
}

// handleHideTracker minimizes the overlay without destroying it. The
// reference survives so a later close still tears the window down.
func (c *Coordinator) handleHideTracker(_ bridge.Envelope) {
	c.mu.Lock()
	win := c.tracker
	if win != nil {
		c.state = TrackerMinimized
	}
	c.mu.Unlock()
	if win == nil {
		return
	}
	if err := win.Minimize(); err != nil {
		log.Warn("tracker minimize failed", logging.KeyError, err)
	}
}

// handleStopShare relays the stop request to the main surface unchanged.
// The renderer there owns the actual capture session.
func (c *Coordinator) handleStopShare(env bridge.Envelope) {
	if err := c.main.Send(env); err != nil {
		log.Warn("stop relay failed", logging.KeyError, err)
	}
}

func decodeOptions(raw json.RawMessage, into any) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("coordinator: decode options: %w", err)
	}
	return nil
}
