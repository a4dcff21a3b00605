package indexdb

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"voxelfactory.io/internal/persistence/snapshot"
	"voxelfactory.io/internal/sim/catalogs"
	"voxelfactory.io/internal/sim/factory"
	"voxelfactory.io/internal/sim/tuning"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndexTickDigestRoundTrip(t *testing.T) {
	idx := openTestIndex(t)

	for i := uint64(0); i < 20; i++ {
		entry := factory.TickLogEntry{
			Tick:   i,
			Digest: fmt.Sprintf("d-%04d", i),
		}
		if err := idx.WriteTick(entry); err != nil {
			t.Fatalf("write tick %d: %v", i, err)
		}
	}
	idx.Flush()

	got, err := idx.TickDigest(7)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != "d-0007" {
		t.Fatalf("tick 7 digest %q", got)
	}
	if _, err := idx.TickDigest(99); err != sql.ErrNoRows {
		t.Fatalf("missing tick: got %v, want sql.ErrNoRows", err)
	}
}

func TestIndexEventTotals(t *testing.T) {
	idx := openTestIndex(t)

	batch := []factory.Event{
		{Tick: 1, Kind: factory.EventItemProduced, Pos: [3]int{18, 8, 15}, Item: "core:iron_ore", Count: 1},
		{Tick: 1, Kind: factory.EventItemDelivered, Pos: [3]int{20, 8, 12}, Item: "core:iron_ore", Count: 1},
		{Tick: 2, Kind: factory.EventItemProduced, Pos: [3]int{18, 8, 15}, Item: "core:iron_ore", Count: 1},
		{Tick: 2, Kind: factory.EventItemProduced, Pos: [3]int{18, 8, 17}, Item: "core:coal", Count: 2},
	}
	if err := idx.WriteEvents(batch); err != nil {
		t.Fatalf("write events: %v", err)
	}
	idx.Flush()

	total, err := idx.EventTotal(string(factory.EventItemProduced), "core:iron_ore")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 2 {
		t.Fatalf("produced iron_ore total %d, want 2", total)
	}
	total, err = idx.EventTotal(string(factory.EventItemProduced), "core:coal")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 2 {
		t.Fatalf("produced coal total %d, want 2", total)
	}
	// Absent pair sums NULL, which reads back as zero.
	total, err = idx.EventTotal(string(factory.EventItemConsumed), "core:coal")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 0 {
		t.Fatalf("consumed coal total %d, want 0", total)
	}
}

func TestIndexLatestSnapshot(t *testing.T) {
	idx := openTestIndex(t)

	for _, tick := range []uint64{1200, 2400, 3600} {
		snap := snapshot.SnapshotV2{
			Header: snapshot.Header{Version: snapshot.Version, Tick: tick},
			Seed:   42,
			Machines: []snapshot.MachineV2{
				{Kind: "core:miner", Pos: [3]int{18, 8, 15}, Facing: "east"},
			},
		}
		idx.RecordSnapshot(fmt.Sprintf("saves/save-%09d.zst", tick), snap)
	}
	idx.Flush()

	path, tick, err := idx.LatestSnapshot()
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if tick != 3600 || path != "saves/save-000003600.zst" {
		t.Fatalf("latest snapshot %q at tick %d", path, tick)
	}
}

func TestIndexUpsertCatalogs(t *testing.T) {
	idx := openTestIndex(t)

	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	if err := idx.UpsertCatalogs("../../../configs", cats, tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows := map[string]string{}
	res, err := idx.db.Query(`SELECT name, digest FROM catalogs`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer res.Close()
	for res.Next() {
		var name, digest string
		if err := res.Scan(&name, &digest); err != nil {
			t.Fatalf("scan: %v", err)
		}
		rows[name] = digest
	}
	if err := res.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}

	for _, want := range []string{"items_defs", "items_palette", "recipes", "machines", "biomes", "tuning"} {
		if rows[want] == "" {
			t.Fatalf("catalog row %q missing or empty digest (got %v)", want, rows)
		}
	}
	if rows["items_palette"] != cats.Items.PaletteDigest {
		t.Fatalf("palette digest %q, want %q", rows["items_palette"], cats.Items.PaletteDigest)
	}

	// Re-upserting must replace, not duplicate.
	if err := idx.UpsertCatalogs("../../../configs", cats, tuning.Defaults()); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM catalogs WHERE name = 'recipes'`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("recipes rows %d, want 1", n)
	}
}

func TestIndexWriteAfterCloseIsNoop(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.WriteTick(factory.TickLogEntry{Tick: 1, Digest: "x"}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	idx.RecordSnapshot("saves/x.zst", snapshot.SnapshotV2{})
	idx.Flush()
	if err := idx.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}
