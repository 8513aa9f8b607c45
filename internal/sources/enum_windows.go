//go:build windows

package sources

import (
	"context"
	"fmt"
	"image"
	"sync"
	"syscall"
	"unsafe"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/windows"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")
	gdi32  = syscall.NewLazyDLL("gdi32.dll")

	procEnumDisplayMonitors      = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW          = user32.NewProc("GetMonitorInfoW")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowLongW           = user32.NewProc("GetWindowLongW")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetDC                    = user32.NewProc("GetDC")
	procReleaseDC                = user32.NewProc("ReleaseDC")
	procPrintWindow              = user32.NewProc("PrintWindow")

	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procCreateDIBSection   = gdi32.NewProc("CreateDIBSection")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procBitBlt             = gdi32.NewProc("BitBlt")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procDeleteObject       = gdi32.NewProc("DeleteObject")
)

const (
	monitorinfofPrimary = 0x1

	gwlExStyle     = -20
	wsExToolWindow = 0x00000080

	srccopy        = 0x00CC0020
	captureblt     = 0x40000000
	pwRenderFull   = 0x2 // PW_RENDERFULLCONTENT, DWM-composed content
	dibRGBColors   = 0
	maxWindowTitle = 256
)

type w32Rect struct {
	Left, Top, Right, Bottom int32
}

type monitorInfo struct {
	Size    uint32
	Monitor w32Rect
	Work    w32Rect
	Flags   uint32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

func newPlatformEnumerator() Enumerator {
	return &win32Enumerator{}
}

type win32Enumerator struct{}

func (e *win32Enumerator) Sources(ctx context.Context, opts Options) ([]Source, error) {
	var out []Source

	if opts.wants(KindScreen) {
		screens, err := enumScreens(opts)
		if err != nil {
			return nil, err
		}
		out = append(out, screens...)
	}

	if opts.wants(KindWindow) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wins, err := enumWindows(opts)
		if err != nil {
			return nil, err
		}
		out = append(out, wins...)
	}

	return out, nil
}

type screenInfo struct {
	rect    w32Rect
	primary bool
}

// NewCallback allocations are never released by the runtime, so the enum
// callbacks are created once and feed package-level accumulators guarded
// by enumMu.
var (
	enumMu        sync.Mutex
	screenResults []screenInfo
	windowResults []uintptr
	callbackOnce  sync.Once
	monitorCb     uintptr
	windowCb      uintptr
)

func initEnumCallbacks() {
	callbackOnce.Do(func() {
		monitorCb = syscall.NewCallback(func(hMonitor, hdc uintptr, rect *w32Rect, lparam uintptr) uintptr {
			var mi monitorInfo
			mi.Size = uint32(unsafe.Sizeof(mi))
			ret, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&mi)))
			if ret != 0 {
				screenResults = append(screenResults, screenInfo{rect: mi.Monitor, primary: mi.Flags&monitorinfofPrimary != 0})
			}
			return 1 // continue
		})
		windowCb = syscall.NewCallback(func(hwnd, lparam uintptr) uintptr {
			windowResults = append(windowResults, hwnd)
			return 1
		})
	})
}

func enumScreens(opts Options) ([]Source, error) {
	initEnumCallbacks()
	enumMu.Lock()
	screenResults = nil
	ret, _, err := procEnumDisplayMonitors.Call(0, 0, monitorCb, 0)
	screens := screenResults
	screenResults = nil
	enumMu.Unlock()
	if ret == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}

	// Primary screen first, matching the picker's expectation.
	for i, s := range screens {
		if s.primary && i != 0 {
			screens[0], screens[i] = screens[i], screens[0]
			break
		}
	}

	out := make([]Source, 0, len(screens))
	for i, s := range screens {
		src := Source{
			ID:   fmt.Sprintf("screen:%d", i),
			Name: fmt.Sprintf("Screen %d", i+1),
			Kind: KindScreen,
		}
		if s.primary {
			src.Name = "Entire Screen"
		}
		if opts.ThumbnailWidth > 0 && opts.ThumbnailHeight > 0 {
			if img, err := captureScreenRect(s.rect); err == nil {
				src.Thumbnail = encodeThumbnail(img, opts.ThumbnailWidth, opts.ThumbnailHeight)
			} else {
				log.Debug("screen thumbnail failed", "screen", i, "error", err)
			}
		}
		out = append(out, src)
	}
	return out, nil
}

func enumWindows(opts Options) ([]Source, error) {
	initEnumCallbacks()
	enumMu.Lock()
	windowResults = nil
	ret, _, err := procEnumWindows.Call(windowCb, 0)
	handles := windowResults
	windowResults = nil
	enumMu.Unlock()
	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}

	var out []Source
	for _, hwnd := range handles {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			continue
		}
		index := gwlExStyle // negative index needs a non-constant conversion
		exStyle, _, _ := procGetWindowLongW.Call(hwnd, uintptr(index))
		if exStyle&wsExToolWindow != 0 {
			continue
		}
		title := windowTitle(hwnd)
		if title == "" {
			continue
		}

		name := title
		if proc := windowProcessName(hwnd); proc != "" {
			name = fmt.Sprintf("%s - %s", title, proc)
		}

		src := Source{
			ID:   fmt.Sprintf("window:0x%X", hwnd),
			Name: name,
			Kind: KindWindow,
		}
		if opts.ThumbnailWidth > 0 && opts.ThumbnailHeight > 0 {
			if img, err := captureWindow(hwnd); err == nil {
				src.Thumbnail = encodeThumbnail(img, opts.ThumbnailWidth, opts.ThumbnailHeight)
			} else {
				log.Debug("window thumbnail failed", "window", src.ID, "error", err)
			}
		}
		out = append(out, src)
	}
	return out, nil
}

func windowTitle(hwnd uintptr) string {
	buf := make([]uint16, maxWindowTitle)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func windowProcessName(hwnd uintptr) string {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return ""
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}

// captureScreenRect grabs a monitor rectangle from the screen DC.
func captureScreenRect(r w32Rect) (*image.RGBA, error) {
	width := int(r.Right - r.Left)
	height := int(r.Bottom - r.Top)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("degenerate monitor rect")
	}

	screenDC, _, _ := procGetDC.Call(0)
	if screenDC == 0 {
		return nil, fmt.Errorf("GetDC failed")
	}
	defer procReleaseDC.Call(0, screenDC)

	return blitToImage(width, height, func(memDC uintptr) error {
		ret, _, err := procBitBlt.Call(memDC, 0, 0, uintptr(width), uintptr(height),
			screenDC, uintptr(r.Left), uintptr(r.Top), srccopy|captureblt)
		if ret == 0 {
			return fmt.Errorf("BitBlt: %w", err)
		}
		return nil
	})
}

// captureWindow renders a single window, including DWM-composed content.
func captureWindow(hwnd uintptr) (*image.RGBA, error) {
	var r w32Rect
	if ret, _, err := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r))); ret == 0 {
		return nil, fmt.Errorf("GetWindowRect: %w", err)
	}
	width := int(r.Right - r.Left)
	height := int(r.Bottom - r.Top)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("degenerate window rect")
	}

	return blitToImage(width, height, func(memDC uintptr) error {
		ret, _, err := procPrintWindow.Call(hwnd, memDC, pwRenderFull)
		if ret == 0 {
			return fmt.Errorf("PrintWindow: %w", err)
		}
		return nil
	})
}

// blitToImage allocates a top-down 32bpp DIB, lets blit draw into it, and
// converts the BGRA bits to an image.RGBA.
func blitToImage(width, height int, blit func(memDC uintptr) error) (*image.RGBA, error) {
	memDC, _, _ := procCreateCompatibleDC.Call(0)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	hdr := bitmapInfoHeader{
		Width:    int32(width),
		Height:   -int32(height), // top-down
		Planes:   1,
		BitCount: 32,
	}
	hdr.Size = uint32(unsafe.Sizeof(hdr))

	var bits unsafe.Pointer
	bitmap, _, err := procCreateDIBSection.Call(memDC, uintptr(unsafe.Pointer(&hdr)),
		dibRGBColors, uintptr(unsafe.Pointer(&bits)), 0, 0)
	if bitmap == 0 {
		return nil, fmt.Errorf("CreateDIBSection: %w", err)
	}
	defer procDeleteObject.Call(bitmap)

	procSelectObject.Call(memDC, bitmap)

	if err := blit(memDC); err != nil {
		return nil, err
	}

	raw := unsafe.Slice((*byte)(bits), width*height*4)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		img.Pix[i*4+0] = raw[i*4+2] // B -> R
		img.Pix[i*4+1] = raw[i*4+1]
		img.Pix[i*4+2] = raw[i*4+0] // R -> B
		img.Pix[i*4+3] = 0xFF
	}
	return img, nil
}
