package factory

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"voxelfactory.io/internal/persistence/snapshot"
	"voxelfactory.io/internal/sim/catalogs"
	"voxelfactory.io/internal/sim/tuning"
)

type Config struct {
	Seed     int64
	Creative bool
}

// Engine is a single-threaded authoritative simulation. All simulation state
// must be accessed only from the engine goroutine; hosts talk to it through
// the command queue and read state between ticks.
type Engine struct {
	cfg  Config
	tune tuning.Tuning
	cats *catalogs.Catalogs

	tick atomic.Uint64

	chunks   *ChunkStore
	biomes   *BiomeMap
	modified map[Vec3i]uint16
	dirty    map[ChunkKey]struct{}

	machines   map[Vec3i]*Machine
	conveyors  map[Vec3i]*Conveyor
	dirtyBelts map[Vec3i]struct{}
	index      spatialIndex

	player   *Player
	platform *Platform

	events []Event

	cmds        chan commandEnvelope
	resultsMu   sync.Mutex
	results     map[uint64]CommandResult
	nextRequest atomic.Uint64

	stop chan struct{}

	breaking  BreakState
	breakHeld bool

	// Optional tick logger (may be nil). Implemented in internal/persistence/log.
	tickLogger TickLogger

	// Optional sinks, drained from the engine goroutine at tick end.
	eventSink func([]Event)
	snapSink  chan<- snapshot.SnapshotV2
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Commands []RecordedCommand `json:"commands,omitempty"`
	Events   int               `json:"events,omitempty"`
	Digest   string            `json:"digest"`
}

type RecordedCommand struct {
	RequestID uint64          `json:"request_id"`
	Name      string          `json:"name"`
	Params    json.RawMessage `json:"params,omitempty"`
	OK        bool            `json:"ok"`
}

func New(cfg Config, tune tuning.Tuning, cats *catalogs.Catalogs) (*Engine, error) {
	stone, ok := cats.Items.Lookup("core:stone")
	if !ok {
		return nil, fmt.Errorf("missing item in catalog: core:stone")
	}
	grass, ok := cats.Items.Lookup("core:grass")
	if !ok {
		return nil, fmt.Errorf("missing item in catalog: core:grass")
	}

	gen := WorldGen{
		Seed:  cfg.Seed,
		Stone: cellOf(stone),
		Grass: cellOf(grass),
	}

	e := &Engine{
		cfg:       cfg,
		tune:      tune,
		cats:      cats,
		chunks:    NewChunkStore(gen),
		modified:  map[Vec3i]uint16{},
		dirty:     map[ChunkKey]struct{}{},
		machines:   map[Vec3i]*Machine{},
		conveyors:  map[Vec3i]*Conveyor{},
		dirtyBelts: map[Vec3i]struct{}{},
		events:    nil,
		cmds:      make(chan commandEnvelope, 256),
		results:   map[uint64]CommandResult{},
		stop:      make(chan struct{}),
	}
	e.biomes = NewBiomeMap(cfg.Seed,
		tune.Spawn.CenterX, tune.Spawn.CenterZ,
		tune.Spawn.Radius, tune.Spawn.InnerRadius,
		&cats.Biomes)
	e.player = NewPlayer(cfg.Creative)
	for _, si := range tune.StarterItems {
		id, ok := cats.Items.Lookup(si.Item)
		if !ok {
			return nil, fmt.Errorf("starter item not in catalog: %s", si.Item)
		}
		e.player.AddItem(id, si.Count, cats.Items.StackSizeOf(id))
	}
	e.platform = NewPlatform(tune.Spawn.CenterX, tune.Spawn.CenterZ, tune.PlatformSize)
	return e, nil
}

func (e *Engine) SetTickLogger(l TickLogger) { e.tickLogger = l }

// SetEventSink routes drained events to the host each tick. Without a sink,
// events buffer until DrainEvents is called.
func (e *Engine) SetEventSink(fn func([]Event)) { e.eventSink = fn }

// SetSnapshotSink receives an autosave every SnapshotEveryTicks ticks.
func (e *Engine) SetSnapshotSink(ch chan<- snapshot.SnapshotV2) { e.snapSink = ch }

func (e *Engine) CurrentTick() uint64 { return e.tick.Load() }

func (e *Engine) Catalogs() *catalogs.Catalogs { return e.cats }
func (e *Engine) Tuning() tuning.Tuning        { return e.tune }
func (e *Engine) Player() *Player              { return e.player }
func (e *Engine) Platform() *Platform          { return e.platform }
func (e *Engine) Biomes() *BiomeMap            { return e.biomes }

// MachineAt returns the machine at pos, or nil. Read-only between ticks.
func (e *Engine) MachineAt(pos Vec3i) *Machine { return e.machines[pos] }

// ConveyorAt returns the conveyor at pos, or nil. Read-only between ticks.
func (e *Engine) ConveyorAt(pos Vec3i) *Conveyor { return e.conveyors[pos] }

// Machines iterates machines in deterministic position order.
func (e *Engine) Machines(fn func(*Machine)) {
	for _, p := range sortedKeys(e.machines) {
		fn(e.machines[p])
	}
}

// Conveyors iterates conveyors in deterministic position order.
func (e *Engine) Conveyors(fn func(*Conveyor)) {
	for _, p := range sortedKeys(e.conveyors) {
		fn(e.conveyors[p])
	}
}

// BlockAt reads the terrain item at pos; ok is false for air. Machines are
// not blocks and never show up here.
func (e *Engine) BlockAt(pos Vec3i) (catalogs.ItemID, bool) {
	return itemOfCell(e.chunks.GetBlock(pos))
}

// setBlockCell writes a raw cell value and dirties the containing chunk plus
// any boundary-adjacent neighbor (edge faces change on boundary writes).
func (e *Engine) setBlockCell(pos Vec3i, cell uint16) {
	e.chunks.SetBlock(pos, cell)
	e.modified[pos] = cell

	cx, cz := chunkOf(pos)
	e.dirty[ChunkKey{CX: cx, CZ: cz}] = struct{}{}
	lx := pos.X - cx*ChunkSize
	lz := pos.Z - cz*ChunkSize
	if lx == 0 {
		e.dirty[ChunkKey{CX: cx - 1, CZ: cz}] = struct{}{}
	}
	if lx == ChunkSize-1 {
		e.dirty[ChunkKey{CX: cx + 1, CZ: cz}] = struct{}{}
	}
	if lz == 0 {
		e.dirty[ChunkKey{CX: cx, CZ: cz - 1}] = struct{}{}
	}
	if lz == ChunkSize-1 {
		e.dirty[ChunkKey{CX: cx, CZ: cz + 1}] = struct{}{}
	}
}

// TakeDirtyChunks drains the dirty-chunk set for the render layer, sorted.
func (e *Engine) TakeDirtyChunks() []ChunkKey {
	if len(e.dirty) == 0 {
		return nil
	}
	out := make([]ChunkKey, 0, len(e.dirty))
	for k := range e.dirty {
		out = append(out, k)
	}
	e.dirty = map[ChunkKey]struct{}{}
	sortChunkKeys(out)
	return out
}
