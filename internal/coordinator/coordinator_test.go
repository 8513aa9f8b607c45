package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/glidecall/shell/internal/bridge"
	"github.com/glidecall/shell/internal/permissions"
	"github.com/glidecall/shell/internal/sources"
	"github.com/glidecall/shell/internal/window"
)

type fakeWindow struct {
	mu            sync.Mutex
	shownInactive int
	minimized     int
	closed        bool
	excluded      bool
	loadedURL     string
	readyFn       func()
	closedFn      func()
}

func (w *fakeWindow) ShowInactive() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shownInactive++
	return nil
}

func (w *fakeWindow) Minimize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.minimized++
	return nil
}

func (w *fakeWindow) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	fn := w.closedFn
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (w *fakeWindow) SetCaptureExclusion(excluded bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.excluded = excluded
	return nil
}

func (w *fakeWindow) LoadURL(url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loadedURL = url
	return nil
}

func (w *fakeWindow) OnReady(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.readyFn = fn
}

func (w *fakeWindow) OnClosed(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closedFn = fn
}

func (w *fakeWindow) fireReady() {
	w.mu.Lock()
	fn := w.readyFn
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakeDisplay struct{ work window.Rect }

func (d fakeDisplay) WorkArea() (window.Rect, error) { return d.work, nil }

type fakeFactory struct {
	mu        sync.Mutex
	work      window.Rect
	created   []*fakeWindow
	lastOpts  window.Options
	exclusion bool
	createErr error
}

func (f *fakeFactory) CreateOverlay(opts window.Options) (window.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	w := &fakeWindow{}
	f.created = append(f.created, w)
	f.lastOpts = opts
	return w, nil
}

func (f *fakeFactory) PrimaryDisplay() (window.Display, error) {
	return fakeDisplay{work: f.work}, nil
}

func (f *fakeFactory) CaptureExclusionSupported() bool { return f.exclusion }

type fakeMain struct {
	mu       sync.Mutex
	sent     []bridge.Envelope
	closedFn []func()
}

func (m *fakeMain) Send(env bridge.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, env)
	return nil
}

func (m *fakeMain) OnClosed(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closedFn = append(m.closedFn, fn)
}

func (m *fakeMain) close() {
	m.mu.Lock()
	fns := append([]func(){}, m.closedFn...)
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type fakeEnumerator struct {
	mu      sync.Mutex
	gotOpts sources.Options
	result  []sources.Source
	err     error
}

func (e *fakeEnumerator) Sources(_ context.Context, opts sources.Options) ([]sources.Source, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gotOpts = opts
	return e.result, e.err
}

type fixture struct {
	bus     *bridge.Bus
	main    *fakeMain
	factory *fakeFactory
	enum    *fakeEnumerator
	coord   *Coordinator
}

func newFixture(t *testing.T, opts Options, deps Deps) *fixture {
	t.Helper()
	f := &fixture{
		bus:     bridge.NewBus(),
		main:    &fakeMain{},
		factory: &fakeFactory{work: window.Rect{X: 0, Y: 0, Width: 1920, Height: 1040}, exclusion: true},
		enum:    &fakeEnumerator{},
	}
	if deps.Factory == nil {
		deps.Factory = f.factory
	} else {
		f.factory = deps.Factory.(*fakeFactory)
	}
	if deps.Enumerator == nil {
		deps.Enumerator = f.enum
	}
	if deps.Probe == nil {
		deps.Probe = func() permissions.Status { return permissions.StatusUnavailable }
	}
	if deps.Reset == nil {
		deps.Reset = func(string) error { return nil }
	}
	if opts.TrackerSize == (window.Size{}) {
		opts.TrackerSize = window.Size{Width: 252, Height: 48}
		opts.TrackerBottomMargin = 16
	}
	f.coord = New(f.bus, f.main, opts, deps)
	return f
}

func (f *fixture) publish(name string) {
	f.bus.Publish(bridge.Envelope{Channel: bridge.ChannelControl, Name: name})
}

func (f *fixture) tracker(t *testing.T) *fakeWindow {
	t.Helper()
	f.factory.mu.Lock()
	defer f.factory.mu.Unlock()
	if len(f.factory.created) == 0 {
		t.Fatal("no tracker window was created")
	}
	return f.factory.created[len(f.factory.created)-1]
}

func TestOpenTrackerCreatesOverlayWithoutFocus(t *testing.T) {
	f := newFixture(t, Options{Identity: "Dana Reyes", TrackerPage: "/opt/glidecall/pages/tracker.html"}, Deps{})

	f.publish(bridge.EventOpenTracker)

	win := f.tracker(t)
	opts := f.factory.lastOpts
	if !opts.AlwaysOnTop || !opts.Frameless || !opts.SkipTaskbar || opts.Resizable {
		t.Errorf("overlay options = %+v, want frameless always-on-top non-resizable skip-taskbar", opts)
	}
	if opts.Visible {
		t.Error("overlay must be created hidden and shown only after ready")
	}
	if !opts.IsolatedContext {
		t.Error("tracker page must run in an isolated context")
	}

	want := window.OverlayBounds(f.factory.work, window.Size{Width: 252, Height: 48}, 16)
	if opts.Bounds != want {
		t.Errorf("overlay bounds = %+v, want %+v", opts.Bounds, want)
	}

	if win.shownInactive != 0 {
		t.Error("overlay shown before its page was ready")
	}
	win.fireReady()
	if win.shownInactive != 1 {
		t.Errorf("shownInactive = %d after ready, want 1", win.shownInactive)
	}
	if got := f.coord.TrackerState(); got != TrackerVisible {
		t.Errorf("state after ready = %v, want visible", got)
	}

	if win.loadedURL != "file:///opt/glidecall/pages/tracker.html?identity=Dana+Reyes" {
		t.Errorf("loaded URL = %q", win.loadedURL)
	}
	if !win.excluded {
		t.Error("capture exclusion not applied despite factory support")
	}
}

func TestOpenTrackerIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{}, Deps{})

	f.publish(bridge.EventOpenTracker)
	f.tracker(t).fireReady()
	f.publish(bridge.EventOpenTracker)

	if got := len(f.factory.created); got != 1 {
		t.Fatalf("windows created = %d, want 1", got)
	}
	if got := f.coord.TrackerState(); got != TrackerVisible {
		t.Errorf("state after repeat open = %v, want visible", got)
	}
}

func TestCloseTrackerDestroysOverlay(t *testing.T) {
	f := newFixture(t, Options{}, Deps{})

	// Close with no tracker must be a no-op.
	f.publish(bridge.EventCloseTracker)

	f.publish(bridge.EventOpenTracker)
	win := f.tracker(t)
	win.fireReady()

	f.publish(bridge.EventCloseTracker)
	if !win.closed {
		t.Error("tracker window was not closed")
	}
	if got := f.coord.TrackerState(); got != TrackerAbsent {
		t.Errorf("state after close = %v, want absent", got)
	}

	// A fresh open after close creates a new window.
	f.publish(bridge.EventOpenTracker)
	if got := len(f.factory.created); got != 2 {
		t.Errorf("windows created = %d, want 2", got)
	}
}

func TestHideTrackerMinimizesButKeepsReference(t *testing.T) {
	f := newFixture(t, Options{}, Deps{})

	// Hide with no tracker must be a no-op.
	f.publish(bridge.EventHideTracker)

	f.publish(bridge.EventOpenTracker)
	win := f.tracker(t)
	win.fireReady()

	f.publish(bridge.EventHideTracker)
	if win.minimized != 1 {
		t.Errorf("minimized = %d, want 1", win.minimized)
	}
	if win.closed {
		t.Error("hide must not destroy the tracker")
	}
	if got := f.coord.TrackerState(); got != TrackerMinimized {
		t.Errorf("state after hide = %v, want minimized", got)
	}

	// The surviving reference still allows a close.
	f.publish(bridge.EventCloseTracker)
	if !win.closed {
		t.Error("close after hide did not destroy the tracker")
	}
}

func TestStopShareForwardsToMainSurface(t *testing.T) {
	f := newFixture(t, Options{}, Deps{})

	payload := json.RawMessage(`{"reason":"user"}`)
	f.bus.Publish(bridge.Envelope{Channel: bridge.ChannelControl, Name: bridge.EventStopShare, Payload: payload})

	if len(f.main.sent) != 1 {
		t.Fatalf("forwarded envelopes = %d, want 1", len(f.main.sent))
	}
	got := f.main.sent[0]
	if got.Name != bridge.EventStopShare || got.Channel != bridge.ChannelControl {
		t.Errorf("forwarded envelope = %+v", got)
	}
	if string(got.Payload) != string(payload) {
		t.Errorf("payload altered in transit: %s", got.Payload)
	}
}

func TestGetSourcesPassesThrough(t *testing.T) {
	f := newFixture(t, Options{}, Deps{})
	f.enum.result = []sources.Source{
		{ID: "screen:0", Name: "Entire Screen", Kind: sources.KindScreen},
		{ID: "window:0x1A2B", Name: "Notes", Kind: sources.KindWindow},
	}

	raw, err := f.bus.Request(context.Background(), bridge.Envelope{
		ID:      "req-1",
		Channel: bridge.ChannelSources,
		Payload: json.RawMessage(`{"types":["screen"],"thumbnailWidth":320,"thumbnailHeight":180}`),
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if f.enum.gotOpts.ThumbnailWidth != 320 || f.enum.gotOpts.ThumbnailHeight != 180 {
		t.Errorf("options not passed through: %+v", f.enum.gotOpts)
	}
	if len(f.enum.gotOpts.Types) != 1 || f.enum.gotOpts.Types[0] != "screen" {
		t.Errorf("types not passed through: %v", f.enum.gotOpts.Types)
	}

	var got []sources.Source
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if len(got) != 2 || got[0].ID != "screen:0" || got[1].ID != "window:0x1A2B" {
		t.Errorf("reply = %+v", got)
	}
}

func TestGetSourcesPropagatesError(t *testing.T) {
	f := newFixture(t, Options{}, Deps{})
	wantErr := errors.New("enumeration blew up")
	f.enum.err = wantErr

	_, err := f.bus.Request(context.Background(), bridge.Envelope{ID: "req-2", Channel: bridge.ChannelSources})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want the enumerator's error unchanged", err)
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	f := newFixture(t, Options{}, Deps{})

	f.publish("share:do-a-backflip")

	if got := f.coord.TrackerState(); got != TrackerAbsent {
		t.Errorf("state after unknown event = %v, want absent", got)
	}
	if len(f.factory.created) != 0 || len(f.main.sent) != 0 {
		t.Error("unknown event caused side effects")
	}
}

func TestPermissionResetOnlyOnPriorDenial(t *testing.T) {
	tests := []struct {
		name      string
		bundleID  string
		status    permissions.Status
		wantReset bool
	}{
		{"denied triggers reset", "com.glidecall.shell", permissions.StatusDenied, true},
		{"granted leaves permission alone", "com.glidecall.shell", permissions.StatusGranted, false},
		{"prompt leaves permission alone", "com.glidecall.shell", permissions.StatusPromptRequired, false},
		{"no bundle id skips the probe", "", permissions.StatusDenied, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resetBundle string
			newFixture(t, Options{BundleID: tt.bundleID}, Deps{
				Probe: func() permissions.Status { return tt.status },
				Reset: func(bundleID string) error {
					resetBundle = bundleID
					return nil
				},
			})
			if tt.wantReset && resetBundle != tt.bundleID {
				t.Errorf("reset called with %q, want %q", resetBundle, tt.bundleID)
			}
			if !tt.wantReset && resetBundle != "" {
				t.Errorf("unexpected reset for bundle %q", resetBundle)
			}
		})
	}
}

func TestMainSurfaceCloseTearsDown(t *testing.T) {
	f := newFixture(t, Options{}, Deps{})

	f.main.close()
	f.main.close() // second close must be harmless

	f.publish(bridge.EventOpenTracker)
	if len(f.factory.created) != 0 {
		t.Error("control events still handled after teardown")
	}
	if _, err := f.bus.Request(context.Background(), bridge.Envelope{ID: "req-3", Channel: bridge.ChannelSources}); err == nil {
		t.Error("sources responder still registered after teardown")
	}

	// Explicit Teardown after the surface callback is also harmless.
	f.coord.Teardown()
}

func TestTrackerClosedByOSClearsState(t *testing.T) {
	f := newFixture(t, Options{}, Deps{})

	f.publish(bridge.EventOpenTracker)
	win := f.tracker(t)
	win.fireReady()

	// Simulate the OS destroying the window out from under us.
	if err := win.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := f.coord.TrackerState(); got != TrackerAbsent {
		t.Errorf("state after external close = %v, want absent", got)
	}
	f.publish(bridge.EventOpenTracker)
	if got := len(f.factory.created); got != 2 {
		t.Errorf("windows created = %d, want 2 after reopen", got)
	}
}

func TestCaptureExclusionSkippedWhenUnsupported(t *testing.T) {
	factory := &fakeFactory{work: window.Rect{Width: 1280, Height: 720}, exclusion: false}
	f := newFixture(t, Options{}, Deps{Factory: factory})

	f.publish(bridge.EventOpenTracker)
	if f.tracker(t).excluded {
		t.Error("capture exclusion applied despite missing support")
	}
}
