package factory

// Step advances the simulation one tick. Phases run in a fixed order so two
// runs from the same state and inputs stay bit-identical:
//
//  1. drain commands (they see the pre-tick world)
//  2. rebuild the spatial index
//  3. machines tick and push finished items onto belts
//  4. belts advance items
//  5. belt heads transfer downstream
//  6. shape reconciliation
//  7. break-progress update
//
// Production precedes belt advance, so a just-produced item waits one tick
// before moving, and an item never crosses two belts within one tick.
func (e *Engine) Step(dt float64) {
	recorded := e.drainCommands()

	e.rebuildIndex()
	e.tickMachines(dt)
	for _, pos := range e.index.conveyorOrder {
		e.conveyors[pos].Advance(dt, e.tune.ConveyorSpeed, e.tune.ConveyorItemSpacing)
	}
	e.tickTransfers()
	e.tickShapes()
	e.tickInteraction(dt)

	if e.tickLogger != nil {
		_ = e.tickLogger.WriteTick(TickLogEntry{
			Tick:     e.tick.Load(),
			Commands: recorded,
			Events:   len(e.events),
			Digest:   e.StateDigest(),
		})
	}
	if e.eventSink != nil {
		if evs := e.DrainEvents(); len(evs) > 0 {
			e.eventSink(evs)
		}
	}
	if e.snapSink != nil && e.tune.SnapshotEveryTicks > 0 &&
		(e.tick.Load()+1)%uint64(e.tune.SnapshotEveryTicks) == 0 {
		select {
		case e.snapSink <- e.ExportSnapshot():
		default:
			// A slow writer skips this autosave rather than stalling the tick.
		}
	}
	e.tick.Add(1)
}
