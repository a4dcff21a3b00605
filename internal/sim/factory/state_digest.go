package factory

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// StateDigest hashes the full simulation state in a canonical order. Two runs
// from the same seed and command stream must produce identical digests at
// every tick; the determinism tests lean on this.
func (e *Engine) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	e.digestHeader(h, &tmp)
	e.digestBlocks(h, &tmp)
	e.digestPlayer(h, &tmp)
	e.digestMachines(h, &tmp)
	e.digestConveyors(h, &tmp)
	e.digestPlatform(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hash.Hash, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteVec3i(h hash.Hash, tmp *[8]byte, v Vec3i) {
	digestWriteI64(h, tmp, int64(v.X))
	digestWriteI64(h, tmp, int64(v.Y))
	digestWriteI64(h, tmp, int64(v.Z))
}

func digestWriteSlot(h hash.Hash, tmp *[8]byte, s Slot) {
	digestWriteU64(h, tmp, uint64(s.Item))
	digestWriteI64(h, tmp, int64(s.Count))
}

func (e *Engine) digestHeader(h hash.Hash, tmp *[8]byte) {
	digestWriteU64(h, tmp, e.tick.Load())
	digestWriteI64(h, tmp, e.cfg.Seed)
	h.Write([]byte(e.cats.Items.PaletteDigest))
}

// digestBlocks hashes only the deviations from generated terrain. Base
// chunks are a pure function of the seed, and which ones happen to be loaded
// is cache state, not simulation state.
func (e *Engine) digestBlocks(h hash.Hash, tmp *[8]byte) {
	keys := sortedKeys(e.modified)
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, pos := range keys {
		digestWriteVec3i(h, tmp, pos)
		digestWriteU64(h, tmp, uint64(e.modified[pos]))
	}
}

func (e *Engine) digestPlayer(h hash.Hash, tmp *[8]byte) {
	p := e.player
	digestWriteF64(h, tmp, p.Pos.X)
	digestWriteF64(h, tmp, p.Pos.Y)
	digestWriteF64(h, tmp, p.Pos.Z)
	digestWriteF64(h, tmp, p.Yaw)
	digestWriteF64(h, tmp, p.Pitch)
	digestWriteI64(h, tmp, int64(p.SelectedSlot))
	for i := range p.Slots {
		digestWriteSlot(h, tmp, p.Slots[i])
	}
}

func (e *Engine) digestMachines(h hash.Hash, tmp *[8]byte) {
	keys := sortedKeys(e.machines)
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, pos := range keys {
		m := e.machines[pos]
		digestWriteVec3i(h, tmp, pos)
		h.Write([]byte(m.Def.ID))
		h.Write([]byte{byte(m.Facing)})
		digestWriteF64(h, tmp, m.Progress)
		digestWriteU64(h, tmp, uint64(m.TickCount))
		for i := range m.Inputs {
			digestWriteSlot(h, tmp, m.Inputs[i])
		}
		digestWriteSlot(h, tmp, m.Output)
		digestWriteSlot(h, tmp, m.Fuel)
	}
}

func (e *Engine) digestConveyors(h hash.Hash, tmp *[8]byte) {
	keys := sortedKeys(e.conveyors)
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, pos := range keys {
		c := e.conveyors[pos]
		digestWriteVec3i(h, tmp, pos)
		h.Write([]byte{byte(c.Facing), byte(c.OutputDir), byte(c.Shape)})
		digestWriteI64(h, tmp, int64(c.LastOutputIndex))
		h.Write([]byte{byte(c.LastInputSource)})
		digestWriteU64(h, tmp, uint64(len(c.Items)))
		for _, it := range c.Items {
			digestWriteU64(h, tmp, uint64(it.Item))
			digestWriteF64(h, tmp, it.Progress)
			digestWriteF64(h, tmp, it.LateralOffset)
		}
	}
}

func (e *Engine) digestPlatform(h hash.Hash, tmp *[8]byte) {
	inv := e.platform.Inventory()
	digestWriteU64(h, tmp, uint64(len(inv)))
	for _, s := range inv {
		digestWriteSlot(h, tmp, s)
	}
}
