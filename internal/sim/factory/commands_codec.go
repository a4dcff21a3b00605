package factory

import (
	"encoding/json"
	"fmt"
)

// DecodeCommand rebuilds a command from a tick log record so a recorded run
// can be replayed through the normal queue.
func DecodeCommand(name string, params json.RawMessage) (Command, error) {
	var cmd Command
	switch name {
	case "teleport":
		cmd = &TeleportCmd{}
	case "set_slot":
		cmd = &SetSlotCmd{}
	case "inventory_move":
		cmd = &InventoryMoveCmd{}
	case "place_block":
		cmd = &PlaceBlockCmd{}
	case "break_block":
		cmd = &BreakBlockCmd{}
	case "reset_state":
		return ResetStateCmd{}, nil
	case "give":
		cmd = &GiveCmd{}
	case "set_block":
		cmd = &SetBlockCmd{}
	case "spawn_machine":
		cmd = &SpawnMachineCmd{}
	default:
		return nil, fmt.Errorf("unknown command %q", name)
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, cmd); err != nil {
			return nil, fmt.Errorf("command %s: %w", name, err)
		}
	}
	return deref(cmd), nil
}

func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *TeleportCmd:
		return *c
	case *SetSlotCmd:
		return *c
	case *InventoryMoveCmd:
		return *c
	case *PlaceBlockCmd:
		return *c
	case *BreakBlockCmd:
		return *c
	case *GiveCmd:
		return *c
	case *SetBlockCmd:
		return *c
	case *SpawnMachineCmd:
		return *c
	default:
		return cmd
	}
}
