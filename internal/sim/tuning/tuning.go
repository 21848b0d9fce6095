package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"airfryer.ai/internal/sim/planet"
	"airfryer.ai/internal/sim/resource"
)

// Tuning is the on-disk planet.yaml. Every field can also be overridden from
// the environment.
type Tuning struct {
	PlanetID       string   `yaml:"planet_id" env:"AIRFRYER_PLANET_ID"`
	BasicResources []string `yaml:"basic_resources" env:"AIRFRYER_BASIC_RESOURCES" envSeparator:","`
	Combinations   []string `yaml:"combinations" env:"AIRFRYER_COMBINATIONS" envSeparator:","`

	RequireRegisteredExplorer bool `yaml:"require_registered_explorer" env:"AIRFRYER_REQUIRE_REGISTERED_EXPLORER"`
	SurplusSunrayBuildsRocket bool `yaml:"surplus_sunray_builds_rocket" env:"AIRFRYER_SURPLUS_SUNRAY_BUILDS_ROCKET"`

	Queues        Queues `yaml:"queues"`
	SnapshotEvery uint64 `yaml:"snapshot_every" env:"AIRFRYER_SNAPSHOT_EVERY"`

	Addr    string `yaml:"addr" env:"AIRFRYER_ADDR"`
	DataDir string `yaml:"data_dir" env:"AIRFRYER_DATA_DIR"`

	// IndexBackend is "sqlite" or "none".
	IndexBackend string `yaml:"index_backend" env:"AIRFRYER_INDEX_BACKEND"`
	AdminHTTP    bool   `yaml:"admin_http" env:"AIRFRYER_ENABLE_ADMIN_HTTP"`
	PprofHTTP    bool   `yaml:"pprof_http" env:"AIRFRYER_ENABLE_PPROF_HTTP"`
}

type Queues struct {
	Orchestrator int `yaml:"orchestrator" env:"AIRFRYER_QUEUE_ORCHESTRATOR"`
	Explorer     int `yaml:"explorer" env:"AIRFRYER_QUEUE_EXPLORER"`
	Responses    int `yaml:"responses" env:"AIRFRYER_QUEUE_RESPONSES"`

	// Replies sizes each explorer mailbox in the websocket hub.
	Replies int `yaml:"replies" env:"AIRFRYER_QUEUE_REPLIES"`
}

func Defaults() Tuning {
	pc := planet.DefaultConfig("P1")
	rc := planet.DefaultRuntimeConfig()
	t := Tuning{
		PlanetID:                  pc.PlanetID,
		RequireRegisteredExplorer: pc.RequireRegisteredExplorer,
		SurplusSunrayBuildsRocket: pc.SurplusSunrayBuildsRocket,
		Queues: Queues{
			Orchestrator: rc.OrchestratorQueue,
			Explorer:     rc.ExplorerQueue,
			Responses:    rc.ResponseQueue,
			Replies:      64,
		},
		SnapshotEvery: rc.SnapshotEvery,
		Addr:          ":8080",
		DataDir:       "./data",
		IndexBackend:  "sqlite",
		AdminHTTP:     true,
	}
	for _, b := range pc.Basic {
		t.BasicResources = append(t.BasicResources, string(b))
	}
	for _, c := range pc.Combinations {
		t.Combinations = append(t.Combinations, string(c))
	}
	return t
}

// Load reads path over Defaults, applies environment overrides and validates.
// An empty path skips the file.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return t, err
		}
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return t, fmt.Errorf("planet.yaml: %w", err)
		}
	}
	if err := env.Parse(&t); err != nil {
		return t, fmt.Errorf("parse env: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("planet.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if _, err := t.PlanetConfig(); err != nil {
		return err
	}
	if err := t.RuntimeConfig().Validate(); err != nil {
		return err
	}
	if t.Queues.Replies <= 0 {
		return errors.New("queues.replies must be positive")
	}
	if strings.TrimSpace(t.DataDir) == "" {
		return errors.New("data_dir must not be empty")
	}
	switch t.IndexBackend {
	case "sqlite", "none":
	default:
		return fmt.Errorf("index_backend %q: want sqlite or none", t.IndexBackend)
	}
	return nil
}

// PlanetConfig converts the resource names and policy knobs.
func (t Tuning) PlanetConfig() (planet.Config, error) {
	cfg := planet.Config{
		PlanetID:                  strings.TrimSpace(t.PlanetID),
		RequireRegisteredExplorer: t.RequireRegisteredExplorer,
		SurplusSunrayBuildsRocket: t.SurplusSunrayBuildsRocket,
	}
	for _, name := range t.BasicResources {
		b, ok := resource.ParseBasic(strings.TrimSpace(name))
		if !ok {
			return cfg, fmt.Errorf("unknown basic resource %q", name)
		}
		cfg.Basic = append(cfg.Basic, b)
	}
	for _, name := range t.Combinations {
		c, ok := resource.ParseComplex(strings.TrimSpace(name))
		if !ok {
			return cfg, fmt.Errorf("unknown complex resource %q", name)
		}
		cfg.Combinations = append(cfg.Combinations, c)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (t Tuning) RuntimeConfig() planet.RuntimeConfig {
	return planet.RuntimeConfig{
		OrchestratorQueue: t.Queues.Orchestrator,
		ExplorerQueue:     t.Queues.Explorer,
		ResponseQueue:     t.Queues.Responses,
		SnapshotEvery:     t.SnapshotEvery,
	}
}
