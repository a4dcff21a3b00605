package factory

import (
	"sort"

	"voxelfactory.io/internal/sim/catalogs"
	"voxelfactory.io/internal/sim/factory/logic/mathx"
)

const (
	ChunkSize   = 16
	ChunkHeight = 32
	GroundLevel = 7
	BlockSize   = 1.0
)

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is a CHUNK_SIZE x CHUNK_HEIGHT x CHUNK_SIZE slab. Cells store the
// terrain item id shifted by one so 0 stays "air".
type Chunk struct {
	CX, CZ int
	Blocks []uint16
}

const cellAir uint16 = 0

func cellOf(item catalogs.ItemID) uint16 { return uint16(item) + 1 }

func itemOfCell(c uint16) (catalogs.ItemID, bool) {
	if c == cellAir {
		return 0, false
	}
	return catalogs.ItemID(c - 1), true
}

func (c *Chunk) index(x, y, z int) int {
	// x fastest, then z, then y
	return x + z*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	c.Blocks[c.index(x, y, z)] = b
}

// WorldGen seeds base terrain: stone below ground level, a grass surface at
// ground level, air above. Ore never generates in terrain; mining output is
// driven by the biome map instead.
type WorldGen struct {
	Seed int64

	Stone uint16
	Grass uint16
}

// ChunkStore lazily generates chunks on first access.
// Accessed only from the engine goroutine.
type ChunkStore struct {
	gen    WorldGen
	chunks map[ChunkKey]*Chunk
}

func NewChunkStore(gen WorldGen) *ChunkStore {
	return &ChunkStore{
		gen:    gen,
		chunks: map[ChunkKey]*Chunk{},
	}
}

func (s *ChunkStore) inBounds(pos Vec3i) bool {
	return pos.Y >= 0 && pos.Y < ChunkHeight
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func (s *ChunkStore) GetBlock(pos Vec3i) uint16 {
	if !s.inBounds(pos) {
		return cellAir
	}
	cx := mathx.FloorDiv(pos.X, ChunkSize)
	cz := mathx.FloorDiv(pos.Z, ChunkSize)
	lx := mathx.Mod(pos.X, ChunkSize)
	lz := mathx.Mod(pos.Z, ChunkSize)
	return s.getOrGenChunk(cx, cz).Get(lx, pos.Y, lz)
}

func (s *ChunkStore) SetBlock(pos Vec3i, b uint16) {
	if !s.inBounds(pos) {
		return
	}
	cx := mathx.FloorDiv(pos.X, ChunkSize)
	cz := mathx.FloorDiv(pos.Z, ChunkSize)
	lx := mathx.Mod(pos.X, ChunkSize)
	lz := mathx.Mod(pos.Z, ChunkSize)
	s.getOrGenChunk(cx, cz).Set(lx, pos.Y, lz, b)
}

func (s *ChunkStore) getOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.chunks[k]; ok {
		return ch
	}
	ch := &Chunk{
		CX:     cx,
		CZ:     cz,
		Blocks: make([]uint16, ChunkSize*ChunkHeight*ChunkSize),
	}
	s.generateChunk(ch)
	s.chunks[k] = ch
	return ch
}

func (s *ChunkStore) generateChunk(ch *Chunk) {
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			for y := 0; y < GroundLevel; y++ {
				ch.Blocks[ch.index(x, y, z)] = s.gen.Stone
			}
			ch.Blocks[ch.index(x, GroundLevel, z)] = s.gen.Grass
		}
	}
}
