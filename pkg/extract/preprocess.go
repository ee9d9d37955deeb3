package extract

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
)

// Preprocessor cleans a cropped field image before it reaches the OCR
// engine: optional target-color darkening (for games that render text in
// dark gray on dark backgrounds), grayscale, upscale of tiny crops and a
// global binarize threshold.
type Preprocessor struct {
	TargetColor    color.NRGBA
	ColorTolerance int
	BinarizeAt     uint8
	MinHeight      int
}

func PreprocessorFromConfig(cfg *gamecfg.GameConfig) Preprocessor {
	return Preprocessor{
		TargetColor:    color.NRGBA{R: cfg.TargetColor[0], G: cfg.TargetColor[1], B: cfg.TargetColor[2], A: 255},
		ColorTolerance: cfg.ColorTolerance,
		BinarizeAt:     cfg.BinarizeAt,
		MinHeight:      48,
	}
}

func (p Preprocessor) Apply(img image.Image) *image.NRGBA {
	work := imaging.Clone(img)
	if p.ColorTolerance > 0 {
		work = darkenTargetColor(work, p.TargetColor, p.ColorTolerance)
	}
	gray := imaging.Grayscale(work)
	if h := gray.Bounds().Dy(); p.MinHeight > 0 && h > 0 && h < p.MinHeight {
		gray = imaging.Resize(gray, 0, p.MinHeight, imaging.Lanczos)
	}
	if p.BinarizeAt > 0 {
		return binarize(gray, p.BinarizeAt)
	}
	return gray
}

// darkenTargetColor pushes pixels within tolerance of target to pure
// black so the binarize pass keeps them as text.
func darkenTargetColor(img *image.NRGBA, target color.NRGBA, tolerance int) *image.NRGBA {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			if within(img.Pix[i], target.R, tolerance) &&
				within(img.Pix[i+1], target.G, tolerance) &&
				within(img.Pix[i+2], target.B, tolerance) {
				img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 0, 0, 0
			}
		}
	}
	return img
}

func within(v, target uint8, tolerance int) bool {
	d := int(v) - int(target)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

// binarize performs a simple global threshold on a grayscale image.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			gray := uint8((r + g + bb) / 3 >> 8)
			var v uint8 = 255
			if gray <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
