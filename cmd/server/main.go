package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"voxelfactory.io/internal/modapi"
	"voxelfactory.io/internal/persistence/archive"
	"voxelfactory.io/internal/persistence/indexdb"
	persistlog "voxelfactory.io/internal/persistence/log"
	"voxelfactory.io/internal/persistence/mirror"
	"voxelfactory.io/internal/persistence/snapshot"
	"voxelfactory.io/internal/sim/catalogs"
	"voxelfactory.io/internal/sim/factory"
	"voxelfactory.io/internal/sim/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id (names the data subdirectory)")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting fresh)")
		creative   = flag.Bool("creative", false, "creative mode: instant break, free placement")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
		keepSaves  = flag.Int("keep_saves", 8, "autosaves retained before pruning (0 keeps all)")

		snapPath   = flag.String("snapshot", "", "path to a save to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load the newest save from the data dir when -snapshot is empty")

		milestoneEvery = flag.Int("milestone_every_ticks", 72000, "archive a milestone save every N ticks (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	// Read-model index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index db: upsert catalogs: %v", err)
		}
	}

	upload := buildMirror(*dataDir, logger)
	defer upload.Close()

	// Create the engine, fresh or resumed from a save.
	saveToLoad := strings.TrimSpace(*snapPath)
	if saveToLoad == "" && *loadLatest {
		saveToLoad = latestSave(worldDir)
	}

	var eng *factory.Engine
	if saveToLoad != "" {
		snap, err := snapshot.ReadSnapshot(saveToLoad)
		if err != nil {
			logger.Fatalf("read save: %v", err)
		}
		eng, err = factory.New(factory.Config{Seed: snap.Seed, Creative: snap.Creative}, tune, cats)
		if err != nil {
			logger.Fatalf("engine: %v", err)
		}
		if err := eng.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import save: %v", err)
		}
		logger.Printf("resumed from save=%s tick=%d", filepath.Base(saveToLoad), eng.CurrentTick())
	} else {
		eng, err = factory.New(factory.Config{Seed: *seed, Creative: *creative}, tune, cats)
		if err != nil {
			logger.Fatalf("engine: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	eng.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	if idx != nil {
		eng.SetEventSink(func(evs []factory.Event) { _ = idx.WriteEvents(evs) })
	}

	// Autosave writer.
	snapCh := make(chan snapshot.SnapshotV2, 2)
	eng.SetSnapshotSink(snapCh)
	go func() {
		savesDir := filepath.Join(worldDir, "saves")
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(savesDir, fmt.Sprintf("save-%09d.zst", snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("save write: %v", err)
					continue
				}
				upload.Enqueue(path)
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
				if _, archivedPath, ok, err := archive.ArchiveMilestone(worldDir, path, snap, *milestoneEvery); err != nil {
					logger.Printf("archive milestone: %v", err)
				} else if ok {
					upload.Enqueue(archivedPath)
				}
				if err := archive.PruneSaves(savesDir, *keepSaves); err != nil {
					logger.Printf("prune saves: %v", err)
				}
			}
		}
	}()

	go func() {
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		fmt.Fprintf(rw, "# HELP voxelfactory_tick Current engine tick.\n")
		fmt.Fprintf(rw, "# TYPE voxelfactory_tick gauge\n")
		fmt.Fprintf(rw, "voxelfactory_tick{world=%q} %d\n", *worldID, eng.CurrentTick())

		writeMirrorMetrics(rw, upload)
	})

	// Local-only command endpoint: {"name": "...", "params": {...}}.
	mux.HandleFunc("/admin/v1/command", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		var body struct {
			Name   string          `json:"name"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		cmd, err := factory.DecodeCommand(body.Name, body.Params)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		id := eng.EnqueueCommand(cmd)
		res, ok := awaitResult(r.Context(), eng, id, tune.TickRateHz)
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"request_id": id,
			"completed":  ok,
			"result":     res,
		})
	})

	mux.HandleFunc("/modapi/v1/ws", modapi.NewServer(cats, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// awaitResult polls for a command result for up to three tick intervals.
func awaitResult(ctx context.Context, eng *factory.Engine, id uint64, tickRate int) (factory.CommandResult, bool) {
	interval := time.Second / time.Duration(tickRate)
	deadline := time.NewTimer(3 * interval)
	defer deadline.Stop()
	poll := time.NewTicker(interval / 4)
	defer poll.Stop()
	for {
		if res, ok := eng.TakeResult(id); ok {
			return res, true
		}
		select {
		case <-ctx.Done():
			return factory.CommandResult{}, false
		case <-deadline.C:
			return factory.CommandResult{}, false
		case <-poll.C:
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSave(worldDir string) string {
	dir := filepath.Join(worldDir, "saves")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "save-") || !strings.HasSuffix(name, ".zst") {
			continue
		}
		base := strings.TrimSuffix(strings.TrimPrefix(name, "save-"), ".zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type multiTickLogger struct {
	a factory.TickLogger
	b *indexdb.SQLiteIndex
}

func (m multiTickLogger) WriteTick(entry factory.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

// buildMirror reads the offsite mirror config from the environment; an unset
// endpoint disables mirroring.
func buildMirror(dataDir string, logger *log.Logger) *mirror.Mirror {
	endpoint := strings.TrimSpace(os.Getenv("VF_MIRROR_ENDPOINT"))
	if endpoint == "" {
		return nil
	}
	client, err := mirror.NewClient(
		endpoint,
		os.Getenv("VF_MIRROR_BUCKET"),
		os.Getenv("VF_MIRROR_ACCESS_KEY_ID"),
		os.Getenv("VF_MIRROR_SECRET_ACCESS_KEY"),
	)
	if err != nil {
		logger.Fatalf("mirror: %v", err)
	}
	return mirror.New(client, dataDir, os.Getenv("VF_MIRROR_PREFIX"), 2, 1024, logger)
}

func writeMirrorMetrics(rw http.ResponseWriter, m *mirror.Mirror) {
	if m == nil {
		return
	}
	s := m.Stats()
	fmt.Fprintf(rw, "# HELP voxelfactory_mirror_queue_depth Current mirror queue depth.\n")
	fmt.Fprintf(rw, "# TYPE voxelfactory_mirror_queue_depth gauge\n")
	fmt.Fprintf(rw, "voxelfactory_mirror_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP voxelfactory_mirror_upload_success_total Total successful mirror uploads.\n")
	fmt.Fprintf(rw, "# TYPE voxelfactory_mirror_upload_success_total counter\n")
	fmt.Fprintf(rw, "voxelfactory_mirror_upload_success_total %d\n", s.UploadSuccessTotal)

	fmt.Fprintf(rw, "# HELP voxelfactory_mirror_upload_fail_total Total failed mirror uploads after retry.\n")
	fmt.Fprintf(rw, "# TYPE voxelfactory_mirror_upload_fail_total counter\n")
	fmt.Fprintf(rw, "voxelfactory_mirror_upload_fail_total %d\n", s.UploadFailTotal)

	fmt.Fprintf(rw, "# HELP voxelfactory_mirror_dropped_total Files dropped under queue saturation.\n")
	fmt.Fprintf(rw, "# TYPE voxelfactory_mirror_dropped_total counter\n")
	fmt.Fprintf(rw, "voxelfactory_mirror_dropped_total %d\n", s.DroppedTotal)
}
