package metrics

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Metric names the cumulative counter an achievement threshold applies to.
type Metric string

const (
	MetricPomodoroSessions Metric = "pomodoro_sessions"
	MetricTasksCompleted   Metric = "tasks_completed"
	MetricFocusHours       Metric = "focus_hours"
	MetricStreakDays       Metric = "streak_days"
)

// Rarity tiers an achievement for display and point rewards.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Achievement is one catalog entry: a threshold over a single cumulative
// metric plus the display attributes the UI needs.
type Achievement struct {
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description" json:"description"`
	Icon        string  `yaml:"icon" json:"icon"`
	Rarity      Rarity  `yaml:"rarity" json:"rarity"`
	Points      int     `yaml:"points" json:"points"`
	Metric      Metric  `yaml:"metric" json:"metric"`
	Threshold   float64 `yaml:"threshold" json:"threshold"`
}

// Catalog is the ordered, immutable achievement set. It is parsed and
// validated once at startup; callers must treat it as read-only.
type Catalog []Achievement

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var defaultCatalog Catalog

func init() {
	catalog, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded achievement catalog is invalid: %v", err))
	}
	defaultCatalog = catalog
}

// DefaultCatalog returns the built-in achievement catalog.
func DefaultCatalog() Catalog {
	return defaultCatalog
}

// ParseCatalog decodes and validates an achievement catalog from YAML.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc struct {
		Achievements []Achievement `yaml:"achievements"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse achievement catalog: %w", err)
	}

	catalog := Catalog(doc.Achievements)
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Validate checks every entry has an id, a known metric and rarity, and a
// positive threshold, and that ids are unique.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("achievement catalog is empty")
	}

	seen := make(map[string]bool, len(c))
	for i, a := range c {
		if a.ID == "" {
			return fmt.Errorf("achievement %d: missing id", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("achievement %q: duplicate id", a.ID)
		}
		seen[a.ID] = true

		if a.Title == "" {
			return fmt.Errorf("achievement %q: missing title", a.ID)
		}
		if a.Threshold <= 0 {
			return fmt.Errorf("achievement %q: threshold must be positive, got %v", a.ID, a.Threshold)
		}

		switch a.Metric {
		case MetricPomodoroSessions, MetricTasksCompleted, MetricFocusHours, MetricStreakDays:
		default:
			return fmt.Errorf("achievement %q: unknown metric %q", a.ID, a.Metric)
		}

		switch a.Rarity {
		case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		default:
			return fmt.Errorf("achievement %q: unknown rarity %q", a.ID, a.Rarity)
		}
	}

	return nil
}
