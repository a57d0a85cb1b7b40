package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ActivationConfig tunes the ranking formula (spec.md §4.1).
type ActivationConfig struct {
	DecayExponent    float64 `yaml:"decayExponent"`
	BaseEpsilon      float64 `yaml:"baseEpsilon"`
	ContextWeight    float64 `yaml:"contextWeight"`
	ImportanceWeight float64 `yaml:"importanceWeight"`
	ContradictionPenalty float64 `yaml:"contradictionPenalty"`
	PinBoost         float64 `yaml:"pinBoost"`
	MinActivation    float64 `yaml:"minActivation"`
}

// ForgettingConfig tunes the Ebbinghaus retrievability/pruning (spec.md §4.2).
type ForgettingConfig struct {
	DefaultThreshold float64 `yaml:"defaultThreshold"`
}

// CreateConfig tunes initial memory seeding in add() (spec.md §3.3 Create):
// "Initial core_strength = 0 unless importance >= a configured floor in
// which case a small seed is added."
type CreateConfig struct {
	CoreSeedImportanceFloor float64 `yaml:"coreSeedImportanceFloor"`
	CoreSeedValue           float64 `yaml:"coreSeedValue"`
}

// ConsolidationConfig tunes the sleep cycle (spec.md §4.5).
type ConsolidationConfig struct {
	WorkingDecayRate       float64 `yaml:"workingDecayRate"`       // mu1
	TransferRate           float64 `yaml:"transferRate"`           // alpha
	ImportanceFloor        float64 `yaml:"importanceFloor"`
	CoreDecayRate          float64 `yaml:"coreDecayRate"`          // mu2
	InterleaveRatio        float64 `yaml:"interleaveRatio"`
	ReplayBoost            float64 `yaml:"replayBoost"`
	PromoteThreshold       float64 `yaml:"promoteThreshold"`
	DemoteThreshold        float64 `yaml:"demoteThreshold"`
	ArchiveThreshold       float64 `yaml:"archiveThreshold"`
}

// ConfidenceConfig tunes the reliability/salience composite (spec.md §4.6).
type ConfidenceConfig struct {
	ReliabilityWeight float64           `yaml:"reliabilityWeight"`
	SalienceWeight    float64           `yaml:"salienceWeight"`
	SalienceK         float64           `yaml:"salienceK"`
	ContradictedAttenuation float64     `yaml:"contradictedAttenuation"`
	DefaultReliability map[string]float64 `yaml:"defaultReliability"`
}

// RewardConfig tunes reward-driven reinforcement (spec.md §4.4).
type RewardConfig struct {
	WindowSize          int     `yaml:"windowSize"`
	Gamma               float64 `yaml:"gamma"`
	RewardMagnitude     float64 `yaml:"rewardMagnitude"`
	RewardStrengthBoost float64 `yaml:"rewardStrengthBoost"`
	RewardSuppression   float64 `yaml:"rewardSuppression"`
}

// DownscaleConfig tunes the homeostasis operator (spec.md §4.5 step 7).
type DownscaleConfig struct {
	DefaultFactor float64 `yaml:"defaultFactor"`
}

// HebbianConfig tunes co-activation/link-formation (spec.md §4.3).
type HebbianConfig struct {
	Enabled          bool    `yaml:"enabled"`
	Threshold        int     `yaml:"threshold"`
	StrengthCap      float64 `yaml:"strengthCap"`
	DecayFactor      float64 `yaml:"decayFactor"`
	PruneBelow       float64 `yaml:"pruneBelow"`
}

// AnomalyConfig bounds runaway growth from repeated reward calls, keeping
// S6 ("downscale bounds growth") satisfiable even before a consolidate
// cycle runs.
type AnomalyConfig struct {
	MaxWorkingStrength float64 `yaml:"maxWorkingStrength"`
}

// Config groups every tunable into the thematic groups named in
// spec.md §6.3. It is a value held by the façade, not process-wide state
// (spec.md §9 "Global mutable configuration" design note) — two engines in
// one process may hold divergent Configs.
type Config struct {
	DBPath   string `yaml:"-"`
	LogLevel string `yaml:"-"`

	Activation    ActivationConfig    `yaml:"activation"`
	Forgetting    ForgettingConfig    `yaml:"forgetting"`
	Create        CreateConfig        `yaml:"create"`
	Consolidation ConsolidationConfig `yaml:"consolidation"`
	Confidence    ConfidenceConfig    `yaml:"confidence"`
	Reward        RewardConfig        `yaml:"reward"`
	Downscale     DownscaleConfig     `yaml:"downscale"`
	Hebbian       HebbianConfig       `yaml:"hebbian"`
	Anomaly       AnomalyConfig       `yaml:"anomaly"`
}

// Default returns the baseline configuration with every default named in
// spec.md §4.
func Default() *Config {
	return &Config{
		Activation: ActivationConfig{
			DecayExponent:        0.5,
			BaseEpsilon:          1e-3,
			ContextWeight:        1.5,
			ImportanceWeight:     0.5,
			ContradictionPenalty: 3.0,
			PinBoost:             1.0,
			MinActivation:        -10.0,
		},
		Forgetting: ForgettingConfig{
			DefaultThreshold: 0.01,
		},
		Create: CreateConfig{
			CoreSeedImportanceFloor: 0.7,
			CoreSeedValue:           0.05,
		},
		Consolidation: ConsolidationConfig{
			WorkingDecayRate: 0.15,
			TransferRate:     0.08,
			ImportanceFloor:  0.1,
			CoreDecayRate:    0.005,
			InterleaveRatio:  0.3,
			ReplayBoost:      0.01,
			PromoteThreshold: 0.25,
			DemoteThreshold:  0.05,
			ArchiveThreshold: 0.15,
		},
		Confidence: ConfidenceConfig{
			ReliabilityWeight:      0.7,
			SalienceWeight:         0.3,
			SalienceK:              2.0,
			ContradictedAttenuation: 0.3,
			DefaultReliability: map[string]float64{
				"factual":    0.85,
				"episodic":   0.90,
				"relational": 0.75,
				"emotional":  0.95,
				"procedural": 0.90,
				"opinion":    0.60,
			},
		},
		Reward: RewardConfig{
			WindowSize:          3,
			Gamma:               0.5,
			RewardMagnitude:     0.5,
			RewardStrengthBoost: 0.1,
			RewardSuppression:   0.2,
		},
		Downscale: DownscaleConfig{
			DefaultFactor: 0.95,
		},
		Hebbian: HebbianConfig{
			Enabled:     true,
			Threshold:   3,
			StrengthCap: 2.0,
			DecayFactor: 0.95,
			PruneBelow:  0.1,
		},
		Anomaly: AnomalyConfig{
			MaxWorkingStrength: 1e4,
		},
	}
}

//go:embed presets.yaml
var presetsYAML []byte

// LoadPreset returns the named configuration preset (spec.md §6.3:
// chatbot, task-agent, personal-assistant, researcher) merged over the
// baseline defaults. Fields the preset's YAML omits keep their Default()
// value, since yaml.v3 only overwrites keys present in the document.
func LoadPreset(name string) (*Config, error) {
	cfg := Default()
	if err := mergePreset(cfg, presetsYAML, name); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergePreset re-unmarshals the single named preset's YAML node directly
// onto cfg, so that only keys explicitly present in presets.yaml override
// the defaults already populated on cfg.
func mergePreset(cfg *Config, raw []byte, name string) error {
	var root struct {
		Presets map[string]yaml.Node `yaml:"presets"`
	}
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return fmt.Errorf("parse presets.yaml: %w", err)
	}
	node, ok := root.Presets[name]
	if !ok {
		return fmt.Errorf("unknown config preset: %s", name)
	}
	if err := node.Decode(cfg); err != nil {
		return fmt.Errorf("decode preset %s: %w", name, err)
	}
	return nil
}

// Load builds the base configuration from the environment, matching the
// teacher's envStr/envInt style for the two process-level settings that
// aren't part of the tunable groups above (db path, log level).
func Load() (*Config, error) {
	cfg := Default()
	cfg.DBPath = envStr("ENGRAMAI_DB_PATH", "./engramai.db")
	cfg.LogLevel = envStr("ENGRAMAI_LOG_LEVEL", "info")

	if preset := os.Getenv("ENGRAMAI_PRESET"); preset != "" {
		preset, err := LoadPreset(preset)
		if err != nil {
			return nil, err
		}
		preset.DBPath = cfg.DBPath
		preset.LogLevel = cfg.LogLevel
		cfg = preset
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("ENGRAMAI_DB_PATH must not be empty")
	}
	if c.Hebbian.Threshold < 1 {
		return fmt.Errorf("hebbian threshold must be >= 1, got %d", c.Hebbian.Threshold)
	}
	if c.Reward.WindowSize < 1 {
		return fmt.Errorf("reward window size must be >= 1, got %d", c.Reward.WindowSize)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

