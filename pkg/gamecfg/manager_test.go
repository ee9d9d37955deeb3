package gamecfg

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `{
  "game_info": {"game_id": "genshin", "game_name": "Genshin Impact"},
  "layout": {
    "reference_width": 1920,
    "reference_height": 1080,
    "regions": {
      "time":   {"x": 100, "y": 200, "w": 300, "h": 40},
      "item":   {"x": 500, "y": 200, "w": 400, "h": 40},
      "banner": {"x": 1000, "y": 200, "w": 400, "h": 40}
    }
  },
  "text_processing": {
    "substitutions": [["0", "O"]],
    "prefix_patterns": ["^NEW\\s*"]
  },
  "matching": {"confidence_threshold": 0.85},
  "pity": {"character": {"top_rarity": 5, "hard_pity": 90}}
}`

func writeConfig(t *testing.T, dir, gameID, data string) {
	t.Helper()
	path := filepath.Join(dir, configPrefix+gameID+".json")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "genshin", sampleConfig)
	m := NewManager(dir, dir)

	cfg, err := m.Load("genshin")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GameName != "Genshin Impact" || cfg.ConfidenceThreshold != 0.85 {
		t.Fatalf("explicit values lost: %+v", cfg)
	}
	if cfg.AspectTolerance != DefaultAspectTolerance {
		t.Fatalf("aspect tolerance default not applied: %v", cfg.AspectTolerance)
	}
	if cfg.MatchFloor != DefaultMatchFloor {
		t.Fatalf("match floor default not applied: %v", cfg.MatchFloor)
	}
	if len(cfg.TimeLayouts) == 0 {
		t.Fatalf("time layout defaults not applied")
	}
	if len(cfg.PrefixPatterns) != 1 || !cfg.PrefixPatterns[0].MatchString("NEW Amber") {
		t.Fatalf("prefix patterns not compiled: %v", cfg.PrefixPatterns)
	}
	if cfg.Pity["character"].HardPity != 90 {
		t.Fatalf("pity rule lost: %+v", cfg.Pity)
	}

	// cached: a second load returns the same instance
	again, err := m.Load("genshin")
	if err != nil || again != cfg {
		t.Fatalf("expected cached config, got %p vs %p err=%v", again, cfg, err)
	}
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, dir)
	if _, err := m.Load("missing"); err == nil {
		t.Fatalf("expected error for absent config")
	}

	writeConfig(t, dir, "broken", `{"game_info": {"game_id": "broken"}}`)
	if _, err := m.Load("broken"); err == nil {
		t.Fatalf("expected error for missing layout")
	}

	outOfBounds := `{
  "game_info": {"game_id": "oob"},
  "layout": {
    "reference_width": 100, "reference_height": 100,
    "regions": {
      "time":   {"x": 90, "y": 0, "w": 20, "h": 10},
      "item":   {"x": 0, "y": 0, "w": 10, "h": 10},
      "banner": {"x": 0, "y": 20, "w": 10, "h": 10}
    }
  }
}`
	writeConfig(t, dir, "oob", outOfBounds)
	if _, err := m.Load("oob"); err == nil {
		t.Fatalf("expected error for region outside reference bounds")
	}
}

func TestGames(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "genshin", sampleConfig)
	writeConfig(t, dir, "broken", `{not json`)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := NewManager(dir, dir)
	games, err := m.Games()
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	if len(games) != 1 || games[0][0] != "genshin" || games[0][1] != "Genshin Impact" {
		t.Fatalf("games: %v", games)
	}
}
