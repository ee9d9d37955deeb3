// Package batch runs the screenshot pipeline across many images with a
// worker pool, and watches an inbox directory for new screenshots.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // decode support for .webp screenshots

	"github.com/Coxwtwo/gacha-ocr/models"
	"github.com/Coxwtwo/gacha-ocr/pkg/assemble"
	"github.com/Coxwtwo/gacha-ocr/pkg/catalog"
	"github.com/Coxwtwo/gacha-ocr/pkg/extract"
	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
	"github.com/Coxwtwo/gacha-ocr/pkg/ocr"
)

// Pipeline processes a single screenshot end to end: crop regions,
// preprocess, recognize, normalize, match, assemble. Safe for concurrent
// use; the shared matchers serialize their own recency state.
type Pipeline struct {
	cfg     *gamecfg.GameConfig
	layout  extract.Layout
	pre     extract.Preprocessor
	engine  ocr.Engine
	norm    *ocr.Normalizer
	items   *catalog.Matcher
	banners *catalog.Matcher
	asm     *assemble.Assembler
}

func NewPipeline(cfg *gamecfg.GameConfig, cats *catalog.Set, engine ocr.Engine) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		layout:  extract.LayoutFromConfig(cfg),
		pre:     extract.PreprocessorFromConfig(cfg),
		engine:  engine,
		norm:    ocr.NewNormalizer(cfg),
		items:   catalog.NewMatcher(cats.Items, cfg.MatchFloor),
		banners: catalog.NewMatcher(cats.Banners, cfg.MatchFloor),
		asm:     assemble.New(cfg),
	}
}

// ProcessImage yields exactly one record unless the image itself is
// unusable (unreadable file or layout mismatch) or the context is done.
// A failed field recognition degrades that field to zero confidence.
func (p *Pipeline) ProcessImage(ctx context.Context, path string) (*models.DrawRecord, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	rects, err := p.layout.ScaleTo(img.Bounds().Dx(), img.Bounds().Dy())
	if err != nil {
		return nil, err
	}
	crops := extract.CropFields(img, rects)

	results := make(map[extract.Field]ocr.Result, len(extract.Fields))
	for _, f := range extract.Fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.engine.Recognize(ctx, p.pre.Apply(crops[f]), f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !errors.Is(err, ocr.ErrRecognitionFailed) {
				return nil, err
			}
			res = ocr.Result{}
		}
		results[f] = res
	}

	timeRes := results[extract.FieldTime]
	itemRes := results[extract.FieldItem]
	bannerRes := results[extract.FieldBanner]

	in := assemble.Input{
		TimeText:       p.norm.Normalize(timeRes.Text),
		TimeConfidence: timeRes.Confidence,
		RawTime:        timeRes.Text,
		RawItem:        itemRes.Text,
		RawBanner:      bannerRes.Text,
	}
	if itemRes.Confidence > 0 {
		in.Item = p.items.Match(p.norm.Normalize(itemRes.Text))
	}
	if bannerRes.Confidence > 0 {
		in.Banner = p.banners.Match(p.norm.Normalize(bannerRes.Text))
	}
	return p.asm.Assemble(in), nil
}
