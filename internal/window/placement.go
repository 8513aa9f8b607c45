package window

// OverlayBounds computes where the share tracker sits: centered
// horizontally in the display's work area, a fixed margin above its
// bottom edge. The overlay is clamped into the work area so a margin or
// size larger than the display never places it off-screen.
func OverlayBounds(work Rect, size Size, bottomMargin int) Rect {
	x := work.X + (work.Width-size.Width)/2
	y := work.Y + work.Height - size.Height - bottomMargin

	if x < work.X {
		x = work.X
	}
	if y < work.Y {
		y = work.Y
	}

	return Rect{X: x, Y: y, Width: size.Width, Height: size.Height}
}
