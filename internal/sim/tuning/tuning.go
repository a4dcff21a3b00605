package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	ReachDistance float64 `yaml:"reach_distance"`

	ConveyorSpeed       float64 `yaml:"conveyor_speed"`
	ConveyorMaxItems    int     `yaml:"conveyor_max_items"`
	ConveyorItemSpacing float64 `yaml:"conveyor_item_spacing"`

	BareHandMultiplier float64 `yaml:"bare_hand_multiplier"`
	PickaxeMultiplier  float64 `yaml:"pickaxe_multiplier"`

	PlatformSize int `yaml:"platform_size"`

	Spawn Spawn `yaml:"spawn"`

	StarterItems []StarterItem `yaml:"starter_items"`
}

// Spawn controls the biome guarantee around the world origin: inside
// InnerRadius the biome is mixed, between InnerRadius and Radius the biome is
// picked by angular sector so iron, copper and coal are always reachable.
type Spawn struct {
	CenterX     int `yaml:"center_x"`
	CenterZ     int `yaml:"center_z"`
	Radius      int `yaml:"radius"`
	InnerRadius int `yaml:"inner_radius"`
}

type StarterItem struct {
	Item  string `yaml:"item"`
	Count int    `yaml:"count"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:          20,
		SnapshotEveryTicks:  1200,
		ReachDistance:       5.0,
		ConveyorSpeed:       1.0,
		ConveyorMaxItems:    4,
		ConveyorItemSpacing: 0.25,
		BareHandMultiplier:  2.0,
		PickaxeMultiplier:   1.0,
		PlatformSize:        12,
		Spawn: Spawn{
			CenterX:     26,
			CenterZ:     16,
			Radius:      15,
			InnerRadius: 5,
		},
		StarterItems: []StarterItem{
			{Item: "core:miner", Count: 2},
			{Item: "core:conveyor", Count: 16},
			{Item: "core:furnace", Count: 1},
			{Item: "core:coal", Count: 8},
			{Item: "core:stone_pickaxe", Count: 1},
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", t.TickRateHz)
	}
	if t.ConveyorSpeed <= 0 {
		return fmt.Errorf("conveyor_speed must be positive, got %v", t.ConveyorSpeed)
	}
	if t.ConveyorMaxItems <= 0 {
		return fmt.Errorf("conveyor_max_items must be positive, got %d", t.ConveyorMaxItems)
	}
	if t.ConveyorItemSpacing <= 0 || t.ConveyorItemSpacing > 1 {
		return fmt.Errorf("conveyor_item_spacing must be in (0,1], got %v", t.ConveyorItemSpacing)
	}
	if t.Spawn.InnerRadius > t.Spawn.Radius {
		return fmt.Errorf("spawn inner_radius %d exceeds radius %d", t.Spawn.InnerRadius, t.Spawn.Radius)
	}
	return nil
}

// TickDT is the fixed simulation step in seconds.
func (t Tuning) TickDT() float64 {
	return 1.0 / float64(t.TickRateHz)
}
