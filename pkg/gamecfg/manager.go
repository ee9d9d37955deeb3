package gamecfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// file shapes for data/config/game_processing_config_<id>.json
type rawGameConfig struct {
	GameInfo struct {
		GameID   string `json:"game_id"`
		GameName string `json:"game_name"`
	} `json:"game_info"`
	Layout struct {
		ReferenceWidth  int             `json:"reference_width"`
		ReferenceHeight int             `json:"reference_height"`
		AspectTolerance float64         `json:"aspect_tolerance"`
		Regions         map[string]Rect `json:"regions"`
	} `json:"layout"`
	TextProcessing struct {
		Substitutions  [][2]string `json:"substitutions"`
		PrefixPatterns []string    `json:"prefix_patterns"`
		SuffixPatterns []string    `json:"suffix_patterns"`
	} `json:"text_processing"`
	Matching struct {
		ConfidenceThreshold float64 `json:"confidence_threshold"`
		MatchFloor          float64 `json:"match_floor"`
	} `json:"matching"`
	TimeLayouts []string `json:"time_layouts"`
	Preprocess  struct {
		TargetColor    [3]uint8 `json:"target_color"`
		ColorTolerance int      `json:"color_tolerance"`
		BinarizeAt     uint8    `json:"binarize_at"`
	} `json:"preprocess"`
	Pity map[string]PityRule `json:"pity"`
}

// Manager loads per-game configs and catalogs from a config directory
// and caches them for the session.
type Manager struct {
	ConfigDir  string
	CatalogDir string

	mu      sync.RWMutex
	configs map[string]*GameConfig
}

func NewManager(configDir, catalogDir string) *Manager {
	return &Manager{
		ConfigDir:  configDir,
		CatalogDir: catalogDir,
		configs:    make(map[string]*GameConfig),
	}
}

const configPrefix = "game_processing_config_"

// Games returns (gameID, gameName) pairs for every config file present,
// sorted by game name.
func (m *Manager) Games() ([][2]string, error) {
	entries, err := os.ReadDir(m.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("read config dir: %w", err)
	}
	var out [][2]string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, configPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, configPrefix), ".json")
		cfg, err := m.Load(id)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable game config")
			continue
		}
		out = append(out, [2]string{cfg.GameID, cfg.GameName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][1] < out[j][1] })
	return out, nil
}

// Load reads and validates the processing config for one game. Results
// are cached; the returned config must be treated as read-only.
func (m *Manager) Load(gameID string) (*GameConfig, error) {
	m.mu.RLock()
	if cfg, ok := m.configs[gameID]; ok {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	path := filepath.Join(m.ConfigDir, configPrefix+gameID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("game config %s: %w", gameID, err)
	}
	var raw rawGameConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("game config %s: %w", gameID, err)
	}

	cfg := &GameConfig{
		GameID:              raw.GameInfo.GameID,
		GameName:            raw.GameInfo.GameName,
		ReferenceWidth:      raw.Layout.ReferenceWidth,
		ReferenceHeight:     raw.Layout.ReferenceHeight,
		AspectTolerance:     raw.Layout.AspectTolerance,
		Regions:             raw.Layout.Regions,
		Substitutions:       raw.TextProcessing.Substitutions,
		ConfidenceThreshold: raw.Matching.ConfidenceThreshold,
		MatchFloor:          raw.Matching.MatchFloor,
		TimeLayouts:         raw.TimeLayouts,
		TargetColor:         raw.Preprocess.TargetColor,
		ColorTolerance:      raw.Preprocess.ColorTolerance,
		BinarizeAt:          raw.Preprocess.BinarizeAt,
		Pity:                raw.Pity,
	}
	if cfg.GameID == "" {
		cfg.GameID = gameID
	}
	for _, p := range raw.TextProcessing.PrefixPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("game config %s: prefix pattern %q: %w", gameID, p, err)
		}
		cfg.PrefixPatterns = append(cfg.PrefixPatterns, re)
	}
	for _, p := range raw.TextProcessing.SuffixPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("game config %s: suffix pattern %q: %w", gameID, p, err)
		}
		cfg.SuffixPatterns = append(cfg.SuffixPatterns, re)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.configs[gameID] = cfg
	m.mu.Unlock()
	return cfg, nil
}
