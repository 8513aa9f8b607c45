//go:build windows

package window

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/glidecall/shell/internal/logging"
)

var log = logging.L("window")

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procRegisterClassExW         = user32.NewProc("RegisterClassExW")
	procCreateWindowExW          = user32.NewProc("CreateWindowExW")
	procDefWindowProcW           = user32.NewProc("DefWindowProcW")
	procDestroyWindow            = user32.NewProc("DestroyWindow")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procGetMessageW              = user32.NewProc("GetMessageW")
	procTranslateMessage         = user32.NewProc("TranslateMessage")
	procDispatchMessageW         = user32.NewProc("DispatchMessageW")
	procPostMessageW             = user32.NewProc("PostMessageW")
	procPostQuitMessage          = user32.NewProc("PostQuitMessage")
	procSystemParametersInfoW    = user32.NewProc("SystemParametersInfoW")
	procSetWindowDisplayAffinity = user32.NewProc("SetWindowDisplayAffinity")
	procGetModuleHandleW         = kernel32.NewProc("GetModuleHandleW")
)

const (
	wsPopup = 0x80000000

	wsExTopmost    = 0x00000008
	wsExToolWindow = 0x00000080
	wsExNoActivate = 0x08000000

	swShowNoActivate  = 4
	swShowMinNoActive = 7

	swpNoActivate = 0x0010
	swpNoMove     = 0x0002
	swpNoSize     = 0x0001

	wmDestroy = 0x0002
	wmClose   = 0x0010
	// Posted to a freshly created window once its pump is running.
	wmAppReady = 0x8000 + 1

	spiGetWorkArea = 0x0030

	// WDA_EXCLUDEFROMCAPTURE: window is removed from capture entirely
	// instead of blacked out. Requires Windows 10 build 19041.
	wdaNone               = 0x00000000
	wdaExcludeFromCapture = 0x00000011
	captureExclusionBuild = 19041
)

const overlayClassName = "GlidecallOverlay"

// hwndTopmost is (HWND)-1 for SetWindowPos.
var hwndTopmost = ^uintptr(0)

type point struct {
	X, Y int32
}

type msg struct {
	HWND    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type w32Rect struct {
	Left, Top, Right, Bottom int32
}

var (
	windowsMu   sync.Mutex
	windowsByHW = map[uintptr]*win32Window{}

	classOnce sync.Once
	classErr  error

	wndprocCallback = syscall.NewCallback(overlayWndProc)
)

func newPlatformFactory() Factory {
	return &win32Factory{}
}

type win32Factory struct{}

func (f *win32Factory) CaptureExclusionSupported() bool {
	v := windows.RtlGetVersion()
	if v.MajorVersion > 10 {
		return true
	}
	return v.MajorVersion == 10 && v.BuildNumber >= captureExclusionBuild
}

func (f *win32Factory) PrimaryDisplay() (Display, error) {
	return primaryDisplay{}, nil
}

type primaryDisplay struct{}

// WorkArea returns the primary display's desktop minus the taskbar.
func (primaryDisplay) WorkArea() (Rect, error) {
	var r w32Rect
	ret, _, err := procSystemParametersInfoW.Call(spiGetWorkArea, 0, uintptr(unsafe.Pointer(&r)), 0)
	if ret == 0 {
		return Rect{}, fmt.Errorf("SystemParametersInfo(SPI_GETWORKAREA): %w", err)
	}
	return Rect{
		X:      int(r.Left),
		Y:      int(r.Top),
		Width:  int(r.Right - r.Left),
		Height: int(r.Bottom - r.Top),
	}, nil
}

func (f *win32Factory) CreateOverlay(opts Options) (Window, error) {
	w := &win32Window{
		created: make(chan error, 1),
	}
	go w.run(opts)
	if err := <-w.created; err != nil {
		return nil, err
	}
	return w, nil
}

type win32Window struct {
	created chan error

	mu       sync.Mutex
	hwnd     uintptr
	ready    bool
	closed   bool
	readyFn  func()
	closedFn func()
	pageURL  string
}

// run owns the window: Win32 windows must be created, pumped, and
// destroyed on the same thread.
func (w *win32Window) run(opts Options) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := registerOverlayClass(); err != nil {
		w.created <- err
		return
	}

	hwnd, err := w.createWindow(opts)
	if err != nil {
		w.created <- err
		return
	}

	w.mu.Lock()
	w.hwnd = hwnd
	w.mu.Unlock()

	windowsMu.Lock()
	windowsByHW[hwnd] = w
	windowsMu.Unlock()

	w.created <- nil

	// Content readiness is signaled once the pump is live; the embedded
	// surface has nothing asynchronous to wait for at this layer.
	procPostMessageW.Call(hwnd, wmAppReady, 0, 0)

	var m msg
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}

	windowsMu.Lock()
	delete(windowsByHW, hwnd)
	windowsMu.Unlock()
}

func (w *win32Window) createWindow(opts Options) (uintptr, error) {
	style := uintptr(wsPopup)
	exStyle := uintptr(0)
	if opts.AlwaysOnTop {
		exStyle |= wsExTopmost
	}
	if opts.SkipTaskbar {
		exStyle |= wsExToolWindow
	}
	// The overlay must never take focus, at creation or on click.
	exStyle |= wsExNoActivate

	className, err := windows.UTF16PtrFromString(overlayClassName)
	if err != nil {
		return 0, err
	}
	title, err := windows.UTF16PtrFromString(opts.Title)
	if err != nil {
		return 0, err
	}

	hInstance, _, _ := procGetModuleHandleW.Call(0)

	hwnd, _, callErr := procCreateWindowExW.Call(
		exStyle,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(title)),
		style,
		uintptr(opts.Bounds.X),
		uintptr(opts.Bounds.Y),
		uintptr(opts.Bounds.Width),
		uintptr(opts.Bounds.Height),
		0, 0, hInstance, 0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowEx: %w", callErr)
	}
	return hwnd, nil
}

type wndClassExW struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   uintptr
	Icon       uintptr
	Cursor     uintptr
	Background uintptr
	MenuName   *uint16
	ClassName  *uint16
	IconSm     uintptr
}

func registerOverlayClass() error {
	classOnce.Do(func() {
		className, err := windows.UTF16PtrFromString(overlayClassName)
		if err != nil {
			classErr = err
			return
		}
		hInstance, _, _ := procGetModuleHandleW.Call(0)
		wc := wndClassExW{
			WndProc:   wndprocCallback,
			Instance:  hInstance,
			ClassName: className,
		}
		wc.Size = uint32(unsafe.Sizeof(wc))
		atom, _, callErr := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))
		if atom == 0 {
			classErr = fmt.Errorf("RegisterClassEx: %w", callErr)
		}
	})
	return classErr
}

func overlayWndProc(hwnd uintptr, message uint32, wparam, lparam uintptr) uintptr {
	switch message {
	case wmAppReady:
		if w := lookupWindow(hwnd); w != nil {
			w.fireReady()
		}
		return 0
	case wmDestroy:
		if w := lookupWindow(hwnd); w != nil {
			w.fireClosed()
		}
		// Each overlay owns its pump thread; end the loop with it.
		procPostQuitMessage.Call(0)
		return 0
	}
	ret, _, _ := procDefWindowProcW.Call(hwnd, uintptr(message), wparam, lparam)
	return ret
}

func lookupWindow(hwnd uintptr) *win32Window {
	windowsMu.Lock()
	defer windowsMu.Unlock()
	return windowsByHW[hwnd]
}

func (w *win32Window) fireReady() {
	w.mu.Lock()
	if w.ready || w.closed {
		w.mu.Unlock()
		return
	}
	w.ready = true
	fn := w.readyFn
	w.readyFn = nil
	w.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (w *win32Window) fireClosed() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	fn := w.closedFn
	w.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (w *win32Window) handle() (uintptr, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.hwnd == 0 {
		return 0, fmt.Errorf("window: already closed")
	}
	return w.hwnd, nil
}

func (w *win32Window) ShowInactive() error {
	hwnd, err := w.handle()
	if err != nil {
		return err
	}
	procShowWindow.Call(hwnd, swShowNoActivate)
	// Re-assert topmost without activating; SW_SHOWNOACTIVATE alone can
	// leave a popup under the foreground window's band.
	ret, _, callErr := procSetWindowPos.Call(hwnd, hwndTopmost, 0, 0, 0, 0, swpNoMove|swpNoSize|swpNoActivate)
	if ret == 0 {
		return fmt.Errorf("SetWindowPos: %w", callErr)
	}
	return nil
}

func (w *win32Window) Minimize() error {
	hwnd, err := w.handle()
	if err != nil {
		return err
	}
	procShowWindow.Call(hwnd, swShowMinNoActive)
	return nil
}

func (w *win32Window) Close() error {
	w.mu.Lock()
	if w.closed || w.hwnd == 0 {
		w.mu.Unlock()
		return nil
	}
	hwnd := w.hwnd
	w.mu.Unlock()

	// WM_CLOSE lets DefWindowProc run the normal destroy path on the
	// window's own thread.
	procPostMessageW.Call(hwnd, wmClose, 0, 0)
	return nil
}

func (w *win32Window) SetCaptureExclusion(excluded bool) error {
	hwnd, err := w.handle()
	if err != nil {
		return err
	}
	affinity := uintptr(wdaNone)
	if excluded {
		affinity = wdaExcludeFromCapture
	}
	ret, _, callErr := procSetWindowDisplayAffinity.Call(hwnd, affinity)
	if ret == 0 {
		return fmt.Errorf("SetWindowDisplayAffinity: %w", callErr)
	}
	return nil
}

// LoadURL records the page for the embedded surface. Navigation itself
// is performed by the renderer host process, which picks the URL up over
// the bridge when it attaches to this window.
func (w *win32Window) LoadURL(url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("window: already closed")
	}
	w.pageURL = url
	log.Debug("overlay navigation recorded", "url", url)
	return nil
}

func (w *win32Window) OnReady(fn func()) {
	w.mu.Lock()
	if w.ready {
		w.mu.Unlock()
		fn()
		return
	}
	w.readyFn = fn
	w.mu.Unlock()
}

func (w *win32Window) OnClosed(fn func()) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		fn()
		return
	}
	w.closedFn = fn
	w.mu.Unlock()
}
