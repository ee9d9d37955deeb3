// Package analyze computes aggregate statistics over a ledger slice:
// pull counts, rarity distribution and pity progress. Pure functions, no
// mutation of the input.
package analyze

import (
	"sort"

	"github.com/Coxwtwo/gacha-ocr/models"
	"github.com/Coxwtwo/gacha-ocr/pkg/catalog"
	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
)

// BannerStats aggregates one banner's draws.
type BannerStats struct {
	BannerID     string      `json:"banner_id"`
	DisplayName  string      `json:"display_name"`
	Category     string      `json:"category"`
	TotalPulls   int         `json:"total_pulls"`
	RarityCounts map[int]int `json:"rarity_counts"`
	TopCount     int         `json:"top_count"`
	TopRate      float64     `json:"top_rate"`
}

// PityState tracks the guarantee counter for one banner category.
// Banners in the same category share a counter; drawing a top-rarity
// item resets it. Intervals records the pull count each top hit took.
type PityState struct {
	Category    string  `json:"category"`
	TopRarity   int     `json:"top_rarity"`
	HardPity    int     `json:"hard_pity"`
	Current     int     `json:"current"`
	Remaining   int     `json:"remaining"`
	Intervals   []int   `json:"intervals"`
	AvgInterval float64 `json:"avg_interval"`
}

// Report is the full analysis of a ledger slice.
type Report struct {
	GameID         string                  `json:"game_id"`
	TotalPulls     int                     `json:"total_pulls"`
	TotalTop       int                     `json:"total_top"`
	OverallTopRate float64                 `json:"overall_top_rate"`
	Banners        map[string]*BannerStats `json:"banners"`
	Pity           map[string]*PityState   `json:"pity"`
}

// defaultRule applies when a banner's category has no configured rule.
var defaultRule = gamecfg.PityRule{TopRarity: 6}

// Analyze walks the slice in draw order and accumulates per-banner
// counts and per-category pity counters.
func Analyze(gameID string, recs []models.DrawRecord, cats *catalog.Set, rules map[string]gamecfg.PityRule) Report {
	ordered := make([]models.DrawRecord, len(recs))
	copy(ordered, recs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DrawTime.Before(ordered[j].DrawTime) })

	rep := Report{
		GameID:  gameID,
		Banners: make(map[string]*BannerStats),
		Pity:    make(map[string]*PityState),
	}
	for _, rec := range ordered {
		item, _ := cats.Items.Get(rec.ItemID)
		category := rec.BannerID
		displayName := rec.BannerID
		if banner, ok := cats.Banners.Get(rec.BannerID); ok {
			displayName = banner.DisplayName
			if banner.Category != "" {
				category = banner.Category
			}
		}
		rule, ok := rules[category]
		if !ok {
			rule = defaultRule
		}

		bs := rep.Banners[rec.BannerID]
		if bs == nil {
			bs = &BannerStats{
				BannerID:     rec.BannerID,
				DisplayName:  displayName,
				Category:     category,
				RarityCounts: make(map[int]int),
			}
			rep.Banners[rec.BannerID] = bs
		}
		ps := rep.Pity[category]
		if ps == nil {
			ps = &PityState{
				Category:  category,
				TopRarity: rule.TopRarity,
				HardPity:  rule.HardPity,
			}
			rep.Pity[category] = ps
		}

		rep.TotalPulls++
		bs.TotalPulls++
		bs.RarityCounts[item.Rarity]++
		ps.Current++
		if item.Rarity >= rule.TopRarity {
			rep.TotalTop++
			bs.TopCount++
			ps.Intervals = append(ps.Intervals, ps.Current)
			ps.Current = 0
		}
	}

	for _, bs := range rep.Banners {
		if bs.TotalPulls > 0 {
			bs.TopRate = float64(bs.TopCount) / float64(bs.TotalPulls) * 100
		}
	}
	for _, ps := range rep.Pity {
		if len(ps.Intervals) > 0 {
			sum := 0
			for _, n := range ps.Intervals {
				sum += n
			}
			ps.AvgInterval = float64(sum) / float64(len(ps.Intervals))
		}
		if ps.HardPity > 0 {
			ps.Remaining = ps.HardPity - ps.Current
			if ps.Remaining < 0 {
				ps.Remaining = 0
			}
		}
	}
	if rep.TotalPulls > 0 {
		rep.OverallTopRate = float64(rep.TotalTop) / float64(rep.TotalPulls) * 100
	}
	return rep
}
