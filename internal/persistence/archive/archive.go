package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"voxelfactory.io/internal/persistence/snapshot"
)

type MilestoneMeta struct {
	Milestone int    `json:"milestone"`
	Tick      uint64 `json:"tick"`
	Seed      int64  `json:"seed"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveMilestone copies a save into `worldDir/archives/milestone_<NNN>/`
// when it lands on a milestone boundary. Autosaves happen every
// snapshot interval; milestones are every everyTicks ticks, so most saves
// pass through untouched. Returns archived=false for non-boundary saves.
func ArchiveMilestone(worldDir, savePath string, snap snapshot.SnapshotV2, everyTicks int) (milestone int, archivedPath string, archived bool, err error) {
	if everyTicks <= 0 {
		return 0, "", false, nil
	}
	every := uint64(everyTicks)
	// Saves record the last executed tick; boundaries are at tick multiples,
	// so the boundary save is at tick = every*k - 1.
	if (snap.Header.Tick+1)%every != 0 {
		return 0, "", false, nil
	}
	milestone = int((snap.Header.Tick + 1) / every)
	if milestone <= 0 {
		return 0, "", false, nil
	}

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("milestone_%03d", milestone))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(savePath))
	if err := copyFile(savePath, dst); err != nil {
		return 0, "", false, err
	}

	meta := MilestoneMeta{
		Milestone: milestone,
		Tick:      snap.Header.Tick,
		Seed:      snap.Seed,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return milestone, dst, true, nil
}

// PruneSaves keeps the newest keep autosaves under dir and removes the rest.
// Names embed the tick and sort chronologically.
func PruneSaves(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) <= keep {
		return nil
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, n)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
