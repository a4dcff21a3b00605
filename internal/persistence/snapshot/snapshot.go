package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 2

type Header struct {
	Version   int    `json:"version"`
	Timestamp int64  `json:"timestamp"`
	Tick      uint64 `json:"tick"`
}

// SnapshotV2 is the full logical save state. Item references are stored by
// name, not by interned handle, so a save survives catalog reordering across
// versions; unknown names are skipped with a warning on load.
type SnapshotV2 struct {
	Header Header `json:"header"`

	Seed     int64 `json:"seed"`
	TickRate int   `json:"tick_rate_hz"`
	Creative bool  `json:"creative,omitempty"`

	Player PlayerV2 `json:"player"`

	// PlatformInventory maps item name to delivered total.
	PlatformInventory map[string]int `json:"platform_inventory,omitempty"`

	// ModifiedBlocks maps "x,y,z" to an item name, or to "" for removed
	// terrain.
	ModifiedBlocks map[string]string `json:"modified_blocks,omitempty"`

	Machines  []MachineV2  `json:"machines,omitempty"`
	Conveyors []ConveyorV2 `json:"conveyors,omitempty"`
}

type PlayerV2 struct {
	Pos          [3]float64 `json:"pos"`
	Yaw          float64    `json:"yaw"`
	Pitch        float64    `json:"pitch"`
	SelectedSlot int        `json:"selected_slot"`
	Slots        []SlotV2   `json:"slots"`
}

// SlotV2 is one inventory slot; empty slots are stored with an empty item
// name so slot indices survive the round trip.
type SlotV2 struct {
	Item  string `json:"item_id"`
	Count int    `json:"count"`
}

type MachineV2 struct {
	Kind      string   `json:"type"`
	Pos       [3]int   `json:"pos"`
	Facing    string   `json:"facing"`
	Progress  float64  `json:"progress"`
	TickCount uint32   `json:"tick_count"`
	Inputs    []SlotV2 `json:"inputs,omitempty"`
	Output    SlotV2   `json:"output"`
	Fuel      SlotV2   `json:"fuel"`
}

type ConveyorV2 struct {
	Pos             [3]int           `json:"pos"`
	Facing          string           `json:"facing"`
	OutputDir       string           `json:"output_direction"`
	Shape           string           `json:"shape"`
	Items           []ConveyorItemV2 `json:"items,omitempty"`
	LastOutputIndex int              `json:"last_output_index"`
	LastInputSource uint8            `json:"last_input_source"`
}

type ConveyorItemV2 struct {
	Item          string  `json:"item_id"`
	Progress      float64 `json:"progress"`
	LateralOffset float64 `json:"lateral_offset"`
}

func WriteSnapshot(path string, snap SnapshotV2) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	// A JSON header line first so tools can identify a save without decoding
	// the body.
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV2, error) {
	var snap SnapshotV2
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; gob carries the header too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
