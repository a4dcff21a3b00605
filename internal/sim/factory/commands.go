package factory

import (
	"encoding/json"
	"fmt"

	"voxelfactory.io/internal/sim/catalogs"
)

// Command is a frame-synchronous mutation enqueued by hosts (CLI, RPC, test
// harness) and drained once per tick, before the tick body runs.
type Command interface {
	name() string
}

type TeleportCmd struct {
	Pos   Vec3f    `json:"pos"`
	Yaw   *float64 `json:"yaw,omitempty"`
	Pitch *float64 `json:"pitch,omitempty"`
}

type SetSlotCmd struct {
	Index int `json:"index"`
}

type InventoryMoveCmd struct {
	From   int `json:"from"`
	To     int `json:"to"`
	Amount int `json:"amount,omitempty"` // 0 moves the whole stack
}

type PlaceBlockCmd struct {
	Pos    Vec3i  `json:"pos"`
	Item   string `json:"item"`
	Facing *Dir   `json:"facing,omitempty"`
}

type BreakBlockCmd struct {
	Pos Vec3i `json:"pos"`
}

type ResetStateCmd struct{}

type GiveCmd struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type SetBlockCmd struct {
	Pos  Vec3i  `json:"pos"`
	Item string `json:"item"` // "" clears to air
}

type SpawnMachineCmd struct {
	Pos     Vec3i  `json:"pos"`
	Machine string `json:"machine"`
	Facing  Dir    `json:"facing"`
}

func (TeleportCmd) name() string      { return "teleport" }
func (SetSlotCmd) name() string       { return "set_slot" }
func (InventoryMoveCmd) name() string { return "inventory_move" }
func (PlaceBlockCmd) name() string    { return "place_block" }
func (BreakBlockCmd) name() string    { return "break_block" }
func (ResetStateCmd) name() string    { return "reset_state" }
func (GiveCmd) name() string          { return "give" }
func (SetBlockCmd) name() string      { return "set_block" }
func (SpawnMachineCmd) name() string  { return "spawn_machine" }

type CommandResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type commandEnvelope struct {
	RequestID uint64
	Cmd       Command
}

// EnqueueCommand queues a command for the next tick and returns its request
// id. Safe to call from any goroutine. A full queue fails the command
// immediately instead of blocking the caller.
func (e *Engine) EnqueueCommand(cmd Command) uint64 {
	id := e.nextRequest.Add(1)
	select {
	case e.cmds <- commandEnvelope{RequestID: id, Cmd: cmd}:
	default:
		e.putResult(id, CommandResult{OK: false, Message: "command queue full"})
	}
	return id
}

// TakeResult removes and returns the result for a request id, once the tick
// that processed it has completed.
func (e *Engine) TakeResult(id uint64) (CommandResult, bool) {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	r, ok := e.results[id]
	if ok {
		delete(e.results, id)
	}
	return r, ok
}

func (e *Engine) putResult(id uint64, r CommandResult) {
	e.resultsMu.Lock()
	e.results[id] = r
	e.resultsMu.Unlock()
}

func (e *Engine) drainCommands() []RecordedCommand {
	var recorded []RecordedCommand
	for {
		select {
		case env := <-e.cmds:
			res := e.applyCommand(env.Cmd)
			e.putResult(env.RequestID, res)
			params, _ := json.Marshal(env.Cmd)
			recorded = append(recorded, RecordedCommand{
				RequestID: env.RequestID,
				Name:      env.Cmd.name(),
				Params:    params,
				OK:        res.OK,
			})
		default:
			return recorded
		}
	}
}

func (e *Engine) applyCommand(cmd Command) CommandResult {
	switch c := cmd.(type) {
	case TeleportCmd:
		e.player.Pos = c.Pos
		if c.Yaw != nil {
			e.player.Yaw = *c.Yaw
		}
		if c.Pitch != nil {
			e.player.Pitch = *c.Pitch
		}
		return CommandResult{OK: true}

	case SetSlotCmd:
		if c.Index < 0 || c.Index >= HotbarSlots {
			return fail("slot %d out of range", c.Index)
		}
		e.player.SelectedSlot = c.Index
		return CommandResult{OK: true}

	case InventoryMoveCmd:
		return e.inventoryMove(c)

	case PlaceBlockCmd:
		return e.placeByCommand(c)

	case BreakBlockCmd:
		if ok, msg := e.breakAt(c.Pos); !ok {
			return CommandResult{OK: false, Message: msg}
		}
		return CommandResult{OK: true}

	case ResetStateCmd:
		e.player.RotationOffset = 0
		e.breaking = BreakState{}
		e.breakHeld = false
		return CommandResult{OK: true}

	case GiveCmd:
		id, ok := e.cats.Items.Lookup(c.Item)
		if !ok {
			return fail("unknown item %q", c.Item)
		}
		if c.Count <= 0 {
			return fail("count must be positive")
		}
		left := e.player.AddItem(id, c.Count, e.cats.Items.StackSizeOf(id))
		if left > 0 {
			return fail("inventory full, %d not added", left)
		}
		return CommandResult{OK: true}

	case SetBlockCmd:
		if e.machines[c.Pos] != nil || e.conveyors[c.Pos] != nil {
			return fail("cell occupied by a machine")
		}
		if c.Item == "" {
			e.setBlockCell(c.Pos, cellAir)
			return CommandResult{OK: true}
		}
		id, ok := e.cats.Items.Lookup(c.Item)
		if !ok {
			return fail("unknown item %q", c.Item)
		}
		e.setBlockCell(c.Pos, cellOf(id))
		return CommandResult{OK: true}

	case SpawnMachineCmd:
		def, ok := e.cats.Machines.ByID[c.Machine]
		if !ok {
			return fail("unknown machine %q", c.Machine)
		}
		if !e.cellFree(c.Pos) {
			return fail("cell occupied")
		}
		e.placeMachine(def, c.Pos, c.Facing)
		return CommandResult{OK: true}

	default:
		return fail("unknown command")
	}
}

func (e *Engine) inventoryMove(c InventoryMoveCmd) CommandResult {
	if c.From < 0 || c.From >= InventorySlots || c.To < 0 || c.To >= InventorySlots {
		return fail("slot index out of range")
	}
	if c.From == c.To {
		return CommandResult{OK: true}
	}
	from := &e.player.Slots[c.From]
	to := &e.player.Slots[c.To]
	if from.Empty() {
		return fail("source slot empty")
	}

	amount := c.Amount
	if amount <= 0 || amount > from.Count {
		amount = from.Count
	}
	cap := e.cats.Items.StackSizeOf(from.Item)
	if to.Empty() || to.Item == from.Item {
		moved := to.Add(from.Item, amount, cap)
		from.Remove(moved)
		return CommandResult{OK: true}
	}
	// Incompatible stacks swap whole slots.
	*from, *to = *to, *from
	return CommandResult{OK: true}
}

func (e *Engine) placeByCommand(c PlaceBlockCmd) CommandResult {
	id, ok := e.cats.Items.Lookup(c.Item)
	if !ok {
		return fail("unknown item %q", c.Item)
	}
	def := e.cats.Items.Defs[c.Item]
	if !e.cellFree(c.Pos) {
		return fail("cell occupied")
	}
	if def.Machine != "" {
		mdef, ok := e.cats.Machines.ByID[def.Machine]
		if !ok {
			return fail("unknown machine kind %q", def.Machine)
		}
		facing := YawToDir(e.player.Yaw)
		if mdef.Process == catalogs.ProcessTransfer {
			facing = e.AutoConveyorDirection(c.Pos)
		}
		if c.Facing != nil {
			facing = *c.Facing
		}
		e.placeMachine(mdef, c.Pos, facing)
		return CommandResult{OK: true}
	}
	if !def.Terrain {
		return fail("item %q is not placeable", c.Item)
	}
	e.setBlockCell(c.Pos, cellOf(id))
	return CommandResult{OK: true}
}

func fail(format string, args ...any) CommandResult {
	return CommandResult{OK: false, Message: fmt.Sprintf(format, args...)}
}
