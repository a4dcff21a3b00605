package factory

import (
	"math"

	"voxelfactory.io/internal/sim/catalogs"
	"voxelfactory.io/internal/sim/factory/logic/mathx"
)

const biomeRegionSize = 8

const (
	BiomeIron   = "iron"
	BiomeCopper = "copper"
	BiomeCoal   = "coal"
	BiomeStone  = "stone"
	BiomeMixed  = "mixed"
)

// BiomeMap resolves a biome id for any XZ column. Inside SpawnRadius of the
// spawn center the layout is fixed so one iron, one copper and one coal
// sector are always reachable; outside, the biome is hashed per 8x8 region.
type BiomeMap struct {
	Seed        int64
	SpawnX      int
	SpawnZ      int
	SpawnRadius int
	InnerRadius int

	biomes *catalogs.BiomeCatalog
}

func NewBiomeMap(seed int64, spawnX, spawnZ, spawnRadius, innerRadius int, cat *catalogs.BiomeCatalog) *BiomeMap {
	return &BiomeMap{
		Seed:        seed,
		SpawnX:      spawnX,
		SpawnZ:      spawnZ,
		SpawnRadius: spawnRadius,
		InnerRadius: innerRadius,
		biomes:      cat,
	}
}

func (m *BiomeMap) BiomeAt(x, z int) string {
	dx := x - m.SpawnX
	dz := z - m.SpawnZ
	d2 := dx*dx + dz*dz
	if r := m.SpawnRadius; r > 0 && d2 <= r*r {
		if ir := m.InnerRadius; d2 <= ir*ir {
			return BiomeMixed
		}
		// Three equal angular sectors, anchored so the boundaries do not
		// drift with the seed.
		angle := math.Atan2(float64(dz), float64(dx)) // [-pi, pi]
		sector := int(math.Floor((angle + math.Pi) / (2 * math.Pi / 3)))
		if sector > 2 {
			sector = 2
		}
		switch sector {
		case 0:
			return BiomeIron
		case 1:
			return BiomeCopper
		default:
			return BiomeCoal
		}
	}

	rx := mathx.FloorDiv(x, biomeRegionSize)
	rz := mathx.FloorDiv(z, biomeRegionSize)
	switch r := mathx.Hash2(m.Seed, rx, rz) % 100; {
	case r < 30:
		return BiomeIron
	case r < 55:
		return BiomeCopper
	case r < 80:
		return BiomeCoal
	case r < 95:
		return BiomeStone
	default:
		return BiomeMixed
	}
}

// SampleResource maps a roll in [0,100) through the biome's weight table.
// Load-time validation guarantees the weights sum to 100, so the walk always
// terminates inside the table.
func (m *BiomeMap) SampleResource(biome string, roll uint32) (string, bool) {
	def, ok := m.biomes.ByID[biome]
	if !ok {
		return "", false
	}
	acc := uint32(0)
	for _, w := range def.Weights {
		acc += uint32(w.Weight)
		if roll < acc {
			return w.Item, true
		}
	}
	return "", false
}

// MineAt rolls the deterministic mining output for a position at a tick.
func (m *BiomeMap) MineAt(pos Vec3i, tick uint32) (string, bool) {
	biome := m.BiomeAt(pos.X, pos.Z)
	roll := mathx.MiningRandom(m.Seed, pos.X, pos.Y, pos.Z, tick)
	return m.SampleResource(biome, roll)
}
