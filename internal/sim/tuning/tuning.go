package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz              int    `yaml:"tick_rate_hz"`
	DayTicks                int    `yaml:"day_ticks"`
	WorldHeight             int    `yaml:"world_height"`
	SnapshotEveryTicks      int    `yaml:"snapshot_every_ticks"`
	ItemEntityLifetimeTicks int    `yaml:"item_entity_lifetime_ticks"`
	LogLevel                string `yaml:"log_level"`

	Hopper  Hopper  `yaml:"hopper"`
	Openers Openers `yaml:"openers"`
	Beacon  Beacon  `yaml:"beacon"`
	Conduit Conduit `yaml:"conduit"`
	Beehive Beehive `yaml:"beehive"`
}

type Hopper struct {
	CooldownTicks int `yaml:"cooldown_ticks"`
	Slots         int `yaml:"slots"`
}

type Openers struct {
	RecheckDelayTicks int     `yaml:"recheck_delay_ticks"`
	ScanRadius        float64 `yaml:"scan_radius"`
}

type Beacon struct {
	CheckEveryTicks   int `yaml:"check_every_ticks"`
	BeamBlocksPerTick int `yaml:"beam_blocks_per_tick"`
}

type Conduit struct {
	CheckEveryTicks int `yaml:"check_every_ticks"`
	EffectTicks     int `yaml:"effect_ticks"`
}

type Beehive struct {
	MaxOccupants          int `yaml:"max_occupants"`
	MinOccupationTicks    int `yaml:"min_occupation_ticks"`
	NectarOccupationTicks int `yaml:"nectar_occupation_ticks"`
}

// Defaults returns the values used for any field tuning.yaml leaves unset.
func Defaults() Tuning {
	return Tuning{
		TickRateHz:              20,
		DayTicks:                24000,
		WorldHeight:             256,
		SnapshotEveryTicks:      6000,
		ItemEntityLifetimeTicks: 6000,
		LogLevel:                "info",
		Hopper:                  Hopper{CooldownTicks: 8, Slots: 5},
		Openers:                 Openers{RecheckDelayTicks: 5, ScanRadius: 5},
		Beacon:                  Beacon{CheckEveryTicks: 80, BeamBlocksPerTick: 10},
		Conduit:                 Conduit{CheckEveryTicks: 40, EffectTicks: 260},
		Beehive:                 Beehive{MaxOccupants: 3, MinOccupationTicks: 600, NectarOccupationTicks: 2400},
	}
}

// ApplyDefaults fills every non-positive field from Defaults.
func (t *Tuning) ApplyDefaults() {
	d := Defaults()
	setInt(&t.TickRateHz, d.TickRateHz)
	setInt(&t.DayTicks, d.DayTicks)
	setInt(&t.WorldHeight, d.WorldHeight)
	setInt(&t.SnapshotEveryTicks, d.SnapshotEveryTicks)
	setInt(&t.ItemEntityLifetimeTicks, d.ItemEntityLifetimeTicks)
	if t.LogLevel == "" {
		t.LogLevel = d.LogLevel
	}
	setInt(&t.Hopper.CooldownTicks, d.Hopper.CooldownTicks)
	setInt(&t.Hopper.Slots, d.Hopper.Slots)
	setInt(&t.Openers.RecheckDelayTicks, d.Openers.RecheckDelayTicks)
	if t.Openers.ScanRadius <= 0 {
		t.Openers.ScanRadius = d.Openers.ScanRadius
	}
	setInt(&t.Beacon.CheckEveryTicks, d.Beacon.CheckEveryTicks)
	setInt(&t.Beacon.BeamBlocksPerTick, d.Beacon.BeamBlocksPerTick)
	setInt(&t.Conduit.CheckEveryTicks, d.Conduit.CheckEveryTicks)
	setInt(&t.Conduit.EffectTicks, d.Conduit.EffectTicks)
	setInt(&t.Beehive.MaxOccupants, d.Beehive.MaxOccupants)
	setInt(&t.Beehive.MinOccupationTicks, d.Beehive.MinOccupationTicks)
	setInt(&t.Beehive.NectarOccupationTicks, d.Beehive.NectarOccupationTicks)
}

func setInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}
