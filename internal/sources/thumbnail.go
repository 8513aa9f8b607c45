package sources

import (
	"bytes"
	"image"
	"image/jpeg"
)

// maxThumbnailBytes caps an encoded thumbnail. The whole source list must
// fit in one bridge message.
const maxThumbnailBytes = 64 * 1024

const thumbnailQuality = 70

// scaleToFit returns img downscaled (nearest neighbor) so it fits within
// maxW x maxH, preserving aspect ratio. Images already within bounds are
// returned as-is.
func scaleToFit(img *image.RGBA, maxW, maxH int) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	factor := float64(maxW) / float64(w)
	if f := float64(maxH) / float64(h); f < factor {
		factor = f
	}

	newW := int(float64(w) * factor)
	newH := int(float64(h) * factor)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := bounds.Min.Y + y*h/newH
		for x := 0; x < newW; x++ {
			srcX := bounds.Min.X + x*w/newW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

// encodeThumbnail scales and JPEG-encodes a capture for the source list.
// If the result still exceeds the byte cap at the standard quality it is
// re-encoded at a lower one; past that the thumbnail is dropped rather
// than bloating the response.
func encodeThumbnail(img *image.RGBA, maxW, maxH int) []byte {
	if img == nil || maxW <= 0 || maxH <= 0 {
		return nil
	}

	scaled := scaleToFit(img, maxW, maxH)

	for _, quality := range []int{thumbnailQuality, 40} {
		buf := new(bytes.Buffer)
		if err := jpeg.Encode(buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
			return nil
		}
		if buf.Len() <= maxThumbnailBytes {
			return buf.Bytes()
		}
	}
	return nil
}
