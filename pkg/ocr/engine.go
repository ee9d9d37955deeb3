// Package ocr is the boundary to the external OCR engine plus the text
// normalization applied to whatever the engine returns.
package ocr

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"

	"github.com/Coxwtwo/gacha-ocr/pkg/extract"
)

// Result is the engine output for one field crop. Tesseract's plain API
// exposes no per-character confidence, so Confidence is 1 when text came
// back and 0 when the field was empty or failed.
type Result struct {
	Text       string
	Confidence float64
}

// Engine abstracts the external OCR process. Implementations must be
// safe for concurrent use across batch workers.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, field extract.Field) (Result, error)
}

// Tesseract drives the system tesseract install through gosseract. A
// fresh client per call keeps it safe under the batch worker pool.
type Tesseract struct {
	Lang string
}

func NewTesseract(lang string) *Tesseract {
	if lang == "" {
		lang = "chi_sim+eng"
	}
	return &Tesseract{Lang: lang}
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image, field extract.Field) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	tmpFile, err := os.CreateTemp("", "gacha-ocr-*.png")
	if err != nil {
		return Result{}, fmt.Errorf("recognize %s: %w", field, ErrRecognitionFailed)
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()
	defer os.Remove(tmp)
	if err := imaging.Save(img, tmp); err != nil {
		return Result{}, fmt.Errorf("recognize %s: %w", field, ErrRecognitionFailed)
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage(t.Lang)
	_ = client.SetPageSegMode(gosseract.PSM_SINGLE_LINE)
	if field == extract.FieldTime {
		// timestamps are digits and separators only
		_ = client.SetWhitelist("0123456789-/:. ")
	}
	client.SetImage(tmp)
	text, err := client.Text()
	if err != nil {
		log.Warn().Err(err).Str("field", string(field)).Msg("tesseract call failed")
		return Result{}, fmt.Errorf("recognize %s: %w", field, ErrRecognitionFailed)
	}
	text = strings.TrimSpace(text)
	res := Result{Text: text}
	if text != "" {
		res.Confidence = 1
	}
	return res, nil
}
