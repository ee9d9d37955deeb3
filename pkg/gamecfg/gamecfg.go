package gamecfg

import (
	"fmt"
	"regexp"
)

// Rect is a pixel rectangle against the reference resolution.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// PityRule describes the guarantee mechanic for one banner category.
type PityRule struct {
	TopRarity int `json:"top_rarity"`
	HardPity  int `json:"hard_pity"`
}

// GameConfig is the validated per-game processing configuration: region
// layout, OCR text cleanup and matching/confidence knobs. Loaded once,
// read-only afterwards.
type GameConfig struct {
	GameID   string
	GameName string

	ReferenceWidth  int
	ReferenceHeight int
	AspectTolerance float64
	Regions         map[string]Rect

	Substitutions  [][2]string
	PrefixPatterns []*regexp.Regexp
	SuffixPatterns []*regexp.Regexp

	ConfidenceThreshold float64
	MatchFloor          float64
	TimeLayouts         []string

	// Preprocessing: darken pixels near TargetColor before OCR (0 tolerance
	// disables the pass).
	TargetColor    [3]uint8
	ColorTolerance int
	BinarizeAt     uint8

	Pity map[string]PityRule
}

// Default knobs applied when the config file omits them.
const (
	DefaultAspectTolerance     = 0.05
	DefaultConfidenceThreshold = 0.8
	DefaultMatchFloor          = 0.6
	DefaultBinarizeAt          = 210
)

// DefaultTimeLayouts mirror the timestamp shapes the games export.
// Non-padded layouts accept both "2024-1-2" and "2024-01-02".
var DefaultTimeLayouts = []string{
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
}

// RequiredFields are the region names every layout must define.
var RequiredFields = []string{"time", "item", "banner"}

func (c *GameConfig) validate() error {
	if c.GameID == "" {
		return fmt.Errorf("game_id is empty")
	}
	if c.ReferenceWidth <= 0 || c.ReferenceHeight <= 0 {
		return fmt.Errorf("game %s: reference resolution %dx%d invalid", c.GameID, c.ReferenceWidth, c.ReferenceHeight)
	}
	for _, name := range RequiredFields {
		r, ok := c.Regions[name]
		if !ok {
			return fmt.Errorf("game %s: missing region %q", c.GameID, name)
		}
		if r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("game %s: region %q has non-positive size", c.GameID, name)
		}
		if r.X < 0 || r.Y < 0 || r.X+r.W > c.ReferenceWidth || r.Y+r.H > c.ReferenceHeight {
			return fmt.Errorf("game %s: region %q exceeds reference bounds", c.GameID, name)
		}
	}
	if c.AspectTolerance <= 0 {
		c.AspectTolerance = DefaultAspectTolerance
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.MatchFloor <= 0 || c.MatchFloor > 1 {
		c.MatchFloor = DefaultMatchFloor
	}
	if c.BinarizeAt == 0 {
		c.BinarizeAt = DefaultBinarizeAt
	}
	if len(c.TimeLayouts) == 0 {
		c.TimeLayouts = DefaultTimeLayouts
	}
	for cat, rule := range c.Pity {
		if rule.TopRarity <= 0 {
			return fmt.Errorf("game %s: pity rule %q has top_rarity %d", c.GameID, cat, rule.TopRarity)
		}
		if rule.HardPity < 0 {
			return fmt.Errorf("game %s: pity rule %q has negative hard_pity", c.GameID, cat)
		}
	}
	return nil
}
