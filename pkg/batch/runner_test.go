package batch

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/Coxwtwo/gacha-ocr/models"
	"github.com/Coxwtwo/gacha-ocr/pkg/catalog"
	"github.com/Coxwtwo/gacha-ocr/pkg/extract"
	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
	"github.com/Coxwtwo/gacha-ocr/pkg/history"
	"github.com/Coxwtwo/gacha-ocr/pkg/ocr"
)

// stubEngine keys its canned output on the uniform gray level of the
// crop, so each test screenshot (painted in one flat color) maps to one
// set of field texts without running a real OCR engine.
type stubEngine struct {
	byGray map[uint8]map[extract.Field]string
}

func (s *stubEngine) Recognize(ctx context.Context, img image.Image, field extract.Field) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	r, _, _, _ := img.At(img.Bounds().Min.X+2, img.Bounds().Min.Y+2).RGBA()
	texts, ok := s.byGray[uint8(r>>8)]
	if !ok {
		return ocr.Result{}, ocr.ErrRecognitionFailed
	}
	return ocr.Result{Text: texts[field], Confidence: 1}, nil
}

// memSink collects everything the runner emits.
type memSink struct {
	ledger *history.MemoryLedger
	queued []*models.DrawRecord
	shots  []*models.Screenshot
}

func newMemSink() *memSink {
	return &memSink{ledger: history.NewMemoryLedger()}
}

func (s *memSink) Append(ctx context.Context, rec *models.DrawRecord) (bool, error) {
	return s.ledger.Append(ctx, rec)
}

func (s *memSink) QueueReview(ctx context.Context, rec *models.DrawRecord) error {
	s.queued = append(s.queued, rec)
	return nil
}

func (s *memSink) SaveScreenshot(ctx context.Context, shot *models.Screenshot) error {
	s.shots = append(s.shots, shot)
	return nil
}

func testConfig() *gamecfg.GameConfig {
	return &gamecfg.GameConfig{
		GameID:          "genshin",
		ReferenceWidth:  192,
		ReferenceHeight: 108,
		AspectTolerance: 0.05,
		Regions: map[string]gamecfg.Rect{
			"time":   {X: 0, Y: 0, W: 96, H: 20},
			"item":   {X: 0, Y: 30, W: 96, H: 20},
			"banner": {X: 0, Y: 60, W: 96, H: 20},
		},
		ConfidenceThreshold: 0.8,
		MatchFloor:          0.6,
		TimeLayouts:         gamecfg.DefaultTimeLayouts,
	}
}

func testCatalogs(t *testing.T) *catalog.Set {
	t.Helper()
	items, err := catalog.New([]catalog.Entry{
		{ID: "amber", DisplayName: "Amber", Rarity: 4},
	})
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	banners, err := catalog.New([]catalog.Entry{
		{ID: "standard", DisplayName: "Wanderlust Invocation", Category: "standard"},
	})
	if err != nil {
		t.Fatalf("banners: %v", err)
	}
	return &catalog.Set{Items: items, Banners: banners}
}

func writeScreenshot(t *testing.T, dir, name string, gray uint8) string {
	t.Helper()
	img := imaging.New(192, 108, color.NRGBA{gray, gray, gray, 255})
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
	return path
}

func testEngine() *stubEngine {
	return &stubEngine{byGray: map[uint8]map[extract.Field]string{
		200: {
			extract.FieldTime:   "2024-05-01 12:30:45",
			extract.FieldItem:   "Amber",
			extract.FieldBanner: "Wanderlust Invocation",
		},
		100: {
			extract.FieldTime:   "2024-05-01 12:31:00",
			extract.FieldItem:   "Amber",
			extract.FieldBanner: "#@?#@?",
		},
	}}
}

func TestRunnerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	clean := writeScreenshot(t, dir, "a_clean.png", 200)
	noisy := writeScreenshot(t, dir, "b_noisy.png", 100)

	sink := newMemSink()
	runner := NewRunner(NewPipeline(testConfig(), testCatalogs(t), testEngine()), sink, 2)
	sum, err := runner.Run(context.Background(), []string{clean, noisy})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Processed != 2 || sum.Confirmed != 1 || sum.NeedsReview != 1 || sum.Failed != 0 {
		t.Fatalf("summary: %+v", sum)
	}
	if sink.ledger.Len() != 1 {
		t.Fatalf("ledger length %d", sink.ledger.Len())
	}
	if len(sink.queued) != 1 || sink.queued[0].RawBanner != "#@?#@?" {
		t.Fatalf("queued: %+v", sink.queued)
	}
	if len(sink.shots) != 2 {
		t.Fatalf("expected 2 screenshot rows got %d", len(sink.shots))
	}

	recs, _ := sink.ledger.Slice(context.Background(), "genshin", time.Time{}, time.Time{})
	if len(recs) != 1 || recs[0].ItemID != "amber" || recs[0].BannerID != "standard" {
		t.Fatalf("ledger contents: %+v", recs)
	}
}

func TestRunnerReprocessingAbsorbs(t *testing.T) {
	dir := t.TempDir()
	clean := writeScreenshot(t, dir, "a_clean.png", 200)

	sink := newMemSink()
	runner := NewRunner(NewPipeline(testConfig(), testCatalogs(t), testEngine()), sink, 1)
	ctx := context.Background()
	if _, err := runner.Run(ctx, []string{clean}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	sum, err := runner.Run(ctx, []string{clean})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.Confirmed != 0 || sum.Absorbed != 1 {
		t.Fatalf("reprocessing must absorb: %+v", sum)
	}
	if sink.ledger.Len() != 1 {
		t.Fatalf("ledger grew on reprocessing: %d", sink.ledger.Len())
	}
}

func TestRunnerBadImages(t *testing.T) {
	dir := t.TempDir()
	// wrong aspect ratio
	img := imaging.New(192, 192, color.NRGBA{200, 200, 200, 255})
	square := filepath.Join(dir, "square.png")
	if err := imaging.Save(img, square); err != nil {
		t.Fatalf("save: %v", err)
	}
	// not an image at all
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not a png"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sink := newMemSink()
	runner := NewRunner(NewPipeline(testConfig(), testCatalogs(t), testEngine()), sink, 1)
	sum, err := runner.Run(context.Background(), []string{square, garbage})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Processed != 2 || sum.Failed != 2 {
		t.Fatalf("summary: %+v", sum)
	}
	for _, shot := range sink.shots {
		if !shot.Failed || shot.FailedReason == "" {
			t.Fatalf("failed screenshot row missing reason: %+v", shot)
		}
	}
}

func TestRunnerCancellation(t *testing.T) {
	dir := t.TempDir()
	path := writeScreenshot(t, dir, "a.png", 200)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := newMemSink()
	runner := NewRunner(NewPipeline(testConfig(), testCatalogs(t), testEngine()), sink, 1)
	sum, err := runner.Run(ctx, []string{path})
	if err == nil {
		t.Fatalf("expected context error")
	}
	if !sum.Cancelled {
		t.Fatalf("summary must flag cancellation: %+v", sum)
	}
	if sink.ledger.Len() != 0 {
		t.Fatalf("nothing should reach the ledger after cancel")
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "c.webp", "notes.txt", "d.PNG"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got := ListImages(dir)
	if len(got) != 4 {
		t.Fatalf("expected 4 images got %v", got)
	}
	if filepath.Base(got[0]) != "a.jpg" {
		t.Fatalf("not sorted: %v", got)
	}
	if ListImages(filepath.Join(dir, "missing")) != nil {
		t.Fatalf("missing dir must return nil")
	}
}

func TestIsSupportedExt(t *testing.T) {
	for _, name := range []string{"x.png", "x.JPG", "x.jpeg", "x.webp"} {
		if !IsSupportedExt(name) {
			t.Fatalf("%s should be supported", name)
		}
	}
	for _, name := range []string{"x.gif", "x.txt", "x"} {
		if IsSupportedExt(name) {
			t.Fatalf("%s should not be supported", name)
		}
	}
}
