// Package extract crops the per-field regions out of a history
// screenshot and prepares them for OCR.
package extract

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
)

// ErrLayoutMismatch is returned when the screenshot's aspect ratio
// deviates from the layout's reference beyond tolerance; cropping would
// produce garbage regions.
var ErrLayoutMismatch = errors.New("image aspect ratio does not match layout")

// Field names the screenshot regions a layout must provide.
type Field string

const (
	FieldTime   Field = "time"
	FieldItem   Field = "item"
	FieldBanner Field = "banner"
)

// Fields lists every region in pipeline order.
var Fields = []Field{FieldTime, FieldItem, FieldBanner}

// Layout carries the per-game region rectangles against a reference
// resolution.
type Layout struct {
	RefW, RefH int
	Tolerance  float64
	Regions    map[Field]gamecfg.Rect
}

// LayoutFromConfig lifts the validated game config into a Layout.
func LayoutFromConfig(cfg *gamecfg.GameConfig) Layout {
	regions := make(map[Field]gamecfg.Rect, len(cfg.Regions))
	for name, r := range cfg.Regions {
		regions[Field(name)] = r
	}
	return Layout{
		RefW:      cfg.ReferenceWidth,
		RefH:      cfg.ReferenceHeight,
		Tolerance: cfg.AspectTolerance,
		Regions:   regions,
	}
}

// ScaleTo maps the reference rectangles onto an actual resolution.
// Returns ErrLayoutMismatch when the aspect ratios diverge beyond
// tolerance.
func (l Layout) ScaleTo(w, h int) (map[Field]image.Rectangle, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrLayoutMismatch, w, h)
	}
	refAspect := float64(l.RefW) / float64(l.RefH)
	aspect := float64(w) / float64(h)
	if math.Abs(aspect-refAspect)/refAspect > l.Tolerance {
		return nil, fmt.Errorf("%w: reference %.3f actual %.3f", ErrLayoutMismatch, refAspect, aspect)
	}
	sx := float64(w) / float64(l.RefW)
	sy := float64(h) / float64(l.RefH)
	out := make(map[Field]image.Rectangle, len(l.Regions))
	for f, r := range l.Regions {
		x0 := int(math.Round(float64(r.X) * sx))
		y0 := int(math.Round(float64(r.Y) * sy))
		x1 := int(math.Round(float64(r.X+r.W) * sx))
		y1 := int(math.Round(float64(r.Y+r.H) * sy))
		if x1 > w {
			x1 = w
		}
		if y1 > h {
			y1 = h
		}
		out[f] = image.Rect(x0, y0, x1, y1)
	}
	return out, nil
}

// CropFields cuts one sub-image per field out of img using the scaled
// rectangles.
func CropFields(img image.Image, rects map[Field]image.Rectangle) map[Field]image.Image {
	out := make(map[Field]image.Image, len(rects))
	for f, r := range rects {
		out[f] = imaging.Crop(img, r)
	}
	return out
}
