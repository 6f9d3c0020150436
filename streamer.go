// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package patchstream

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/patchstream/cache"
	"github.com/gogpu/patchstream/content"
	"github.com/gogpu/patchstream/patch"
	"github.com/gogpu/patchstream/spatial"
)

// SpatialIndex partitions the world into cells with stable ids.
// spatial.Quadtree implements SpatialIndex.
type SpatialIndex interface {
	LeafCells() []spatial.Cell
	CellsIntersecting(v spatial.Volume) []spatial.Cell
}

// Builder turns a cell into a render-ready patch. Build is called from pool
// goroutines and must be safe for concurrent use with distinct cell ids.
// patch.HALBuilder implements Builder.
type Builder interface {
	Build(cellID int, shared *content.Level) (*patch.Patch, error)
}

// DrawContext receives the draw calls of resident patches and returns the
// number of triangles drawn. patch.PassRecorder implements DrawContext.
type DrawContext interface {
	IssueDraw(p *patch.Patch) int
}

// View is the camera input of one frame.
type View struct {
	// Volume selects the visible cells.
	Volume spatial.Volume

	// Eye orders the visible cells nearest first.
	Eye mgl32.Vec3
}

// FrameReport summarizes one Update.
type FrameReport struct {
	Frame uint64

	// Visible is the number of distinct cells in the view.
	Visible int

	// Candidates is the number of visible cells that had no cache entry.
	Candidates int

	// Scheduled is the number of builds handed to the scheduler.
	Scheduled int

	// Deferred is the number of candidates left for later frames by
	// WithMaxBuildsPerFrame.
	Deferred int

	// Unreserved is the number of candidates skipped because their cache
	// shard stayed contended.
	Unreserved int
}

// slot is a cache entry. A slot with a nil patch is a reservation; the
// pointer itself identifies the reservation to the build that owns it.
// Slots are never modified after they are stored.
type slot struct {
	patch *patch.Patch
}

// Streamer is a visibility-driven patch cache.
//
// Thread safety: Update, Draw, Prefetch, Reset, Close and Visible must be
// called from a single goroutine (the render thread). State, Patch, Level,
// Stats and Wait are safe to call from any goroutine.
type Streamer struct {
	index     SpatialIndex
	builder   Builder
	scheduler Scheduler
	owned     *PoolScheduler
	opts      options

	entries *cache.ShardedMap[int, *slot]
	level   atomic.Pointer[content.Level]

	// visible is owned by the render thread.
	visible []int

	frame         atomic.Uint64
	lastTriangles atomic.Int64

	inflight sync.WaitGroup
	closed   atomic.Bool

	scheduled  atomic.Uint64
	succeeded  atomic.Uint64
	failed     atomic.Uint64
	unreserved atomic.Uint64
	stale      atomic.Uint64
	disposed   atomic.Uint64
}

// New creates a streamer for the cells of index, building patches with
// builder from level. level may be nil until the first Reset.
func New(index SpatialIndex, builder Builder, level *content.Level, opts ...Option) (*Streamer, error) {
	if index == nil {
		return nil, ErrNilIndex
	}
	if builder == nil {
		return nil, ErrNilBuilder
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Streamer{
		index:   index,
		builder: builder,
		opts:    o,
		entries: cache.NewSharded[int, *slot](cache.IntHasher),
	}
	if o.scheduler != nil {
		s.scheduler = o.scheduler
	} else {
		s.owned = NewPoolScheduler(o.workers)
		s.scheduler = s.owned
	}
	s.level.Store(level)
	return s, nil
}

// Update computes the visible cells of view, reserves a cache slot for every
// visible cell without an entry and schedules their builds as one batch.
// Update never waits for a build.
func (s *Streamer) Update(view View) FrameReport {
	if s.closed.Load() {
		return FrameReport{Frame: s.frame.Load()}
	}
	frame := s.frame.Add(1)
	report := FrameReport{Frame: frame}

	s.visible = orderCells(s.index.CellsIntersecting(view.Volume), view.Eye)
	report.Visible = len(s.visible)

	candidates := s.absent(s.visible)
	report.Candidates = len(candidates)
	if limit := s.opts.maxBuildsPerFrame; limit > 0 && len(candidates) > limit {
		report.Deferred = len(candidates) - limit
		candidates = candidates[:limit]
	}

	ids, reservations, unreserved := s.reserveAll(candidates)
	report.Unreserved = unreserved
	report.Scheduled = len(ids)
	s.schedule(fmt.Sprintf("frame-%d", frame), ids, reservations)
	return report
}

// Prefetch schedules a build for every cell of the index that has no cache
// entry, in one batch. It returns the number of builds scheduled.
func (s *Streamer) Prefetch() int {
	if s.closed.Load() {
		return 0
	}
	cells := s.index.LeafCells()
	all := make([]int, len(cells))
	for i, c := range cells {
		all[i] = c.ID
	}

	ids, reservations, _ := s.reserveAll(s.absent(all))
	s.schedule("prefetch", ids, reservations)
	return len(ids)
}

// orderCells returns the distinct ids of cells ordered by squared distance
// from eye to the cell center, ties by id.
func orderCells(cells []spatial.Cell, eye mgl32.Vec3) []int {
	type ranked struct {
		id   int
		dist float32
	}
	seen := make(map[int]struct{}, len(cells))
	rs := make([]ranked, 0, len(cells))
	for _, c := range cells {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		rs = append(rs, ranked{id: c.ID, dist: c.DistanceSq(eye)})
	}
	slices.SortFunc(rs, func(a, b ranked) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	ids := make([]int, len(rs))
	for i, r := range rs {
		ids[i] = r.id
	}
	return ids
}

// absent returns the ids that have no cache entry, in order. An id whose
// shard is contended is kept; reservation settles it without blocking.
func (s *Streamer) absent(ids []int) []int {
	var out []int
	for _, id := range ids {
		if _, ok, err := s.entries.TryGet(id); err != nil || !ok {
			out = append(out, id)
		}
	}
	return out
}

// reserveAll reserves every id that is still absent and returns the ids it
// now owns with their reservation slots.
func (s *Streamer) reserveAll(candidates []int) (ids []int, reservations []*slot, unreserved int) {
	for _, id := range candidates {
		res, err := s.reserve(id)
		if err != nil {
			unreserved++
			continue
		}
		if res != nil {
			ids = append(ids, id)
			reservations = append(reservations, res)
		}
	}
	return ids, reservations, unreserved
}

// reserve inserts a fresh reservation for id. It returns nil without error
// if id already has an entry, and cache.ErrContended once the attempts are
// used up.
func (s *Streamer) reserve(id int) (*slot, error) {
	res := &slot{}
	for range s.opts.reserveAttempts {
		inserted, err := s.entries.TryInsertIfAbsent(id, res)
		if err != nil {
			continue
		}
		if !inserted {
			return nil, nil
		}
		return res, nil
	}

	s.unreserved.Add(1)
	Logger().Warn("patchstream: cell left unreserved",
		"cell", id, "attempts", s.opts.reserveAttempts)
	return nil, cache.ErrContended
}

// schedule hands one batch of builds to the scheduler.
func (s *Streamer) schedule(name string, ids []int, reservations []*slot) {
	if len(ids) == 0 {
		return
	}

	level := s.level.Load()
	builder := s.builder
	tasks := make([]BuildTask, len(ids))
	for i, id := range ids {
		tasks[i] = func() (BuildResult, error) {
			p, err := builder.Build(id, level)
			return BuildResult{CellID: id, Patch: p}, err
		}
	}

	s.scheduled.Add(uint64(len(tasks)))
	s.inflight.Add(1)
	Logger().Debug("patchstream: batch scheduled", "batch", name, "builds", len(tasks))
	s.scheduler.Schedule(name, tasks, func(name string, outcomes []BuildOutcome) {
		defer s.inflight.Done()
		s.integrate(name, ids, reservations, outcomes)
	})
}

// integrate applies the outcomes of one batch to the cache.
func (s *Streamer) integrate(name string, ids []int, reservations []*slot, outcomes []BuildOutcome) {
	for i, id := range ids {
		var out BuildOutcome
		if i < len(outcomes) {
			out = outcomes[i]
		} else {
			out.Err = fmt.Errorf("patchstream: batch %s reported %d outcomes for %d builds", name, len(outcomes), len(ids))
		}

		if out.Completed && out.Err == nil && out.Result.Patch != nil {
			s.complete(id, reservations[i], out.Result.Patch)
			continue
		}

		err := out.Err
		if err == nil {
			err = ErrNilPatch
		}
		if p := out.Result.Patch; p != nil {
			p.Destroy()
		}
		s.fail(name, id, reservations[i], err)
	}
}

// complete turns the reservation into a resident patch. If the reservation
// is gone the cache was reset after scheduling and the patch is destroyed.
func (s *Streamer) complete(id int, res *slot, p *patch.Patch) {
	resident := &slot{patch: p}
	if s.entries.ReplaceIf(id, resident, func(cur *slot) bool { return cur == res }) {
		s.succeeded.Add(1)
		Logger().Debug("patchstream: patch resident", "cell", id, "triangles", p.TriangleCount())
		return
	}

	if p.Destroy() {
		s.disposed.Add(1)
	}
	s.stale.Add(1)
	Logger().Debug("patchstream: stale patch dropped", "cell", id)
}

// fail logs a failed build and removes its reservation so the cell can be
// scheduled again.
func (s *Streamer) fail(name string, id int, res *slot, err error) {
	s.failed.Add(1)
	Logger().Error("patchstream: patch build failed", "cell", id, "batch", name, "err", err)

	owned := func(cur *slot) bool { return cur == res }
	for range s.opts.removeAttempts {
		if _, err := s.entries.TryRemoveIf(id, owned); err == nil {
			return
		}
		runtime.Gosched()
	}
	s.entries.RemoveIf(id, owned)
}

// Draw issues the draw calls of every visible resident patch and reports
// whether any triangle was drawn. Cells that are not resident are skipped.
// Draw never starts or waits for a build.
func (s *Streamer) Draw(dc DrawContext) bool {
	log := Logger()
	tracing := log.Enabled(context.Background(), LevelTrace)

	triangles := 0
	for _, id := range s.visible {
		sl, ok := s.entries.Get(id)
		if !ok || sl.patch == nil {
			if tracing {
				state := StateAbsent
				if ok {
					state = StateReserved
				}
				log.Log(context.Background(), LevelTrace, "patchstream: cell not drawn",
					"cell", id, "state", state.String())
			}
			continue
		}
		triangles += dc.IssueDraw(sl.patch)
	}

	s.lastTriangles.Store(int64(triangles))
	return triangles > 0
}

// Reset switches to level, destroys every resident patch and empties the
// cache. Builds in flight are not cancelled; their results are destroyed
// when they complete.
func (s *Streamer) Reset(level *content.Level) {
	s.level.Store(level)
	n := s.clear()
	s.visible = nil
	s.lastTriangles.Store(0)

	name := ""
	if level != nil {
		name = level.Name
	}
	Logger().Info("patchstream: cache reset", "level", name, "entries", n)
}

// clear drains the cache and destroys the drained patches.
func (s *Streamer) clear() int {
	return s.entries.Drain(func(_ int, sl *slot) {
		if sl.patch != nil && sl.patch.Destroy() {
			s.disposed.Add(1)
		}
	})
}

// State returns the cache state of a cell.
func (s *Streamer) State(id int) EntryState {
	sl, ok := s.entries.Get(id)
	switch {
	case !ok:
		return StateAbsent
	case sl.patch == nil:
		return StateReserved
	default:
		return StateResident
	}
}

// Patch returns the resident patch of a cell.
func (s *Streamer) Patch(id int) (*patch.Patch, bool) {
	sl, ok := s.entries.Get(id)
	if !ok || sl.patch == nil {
		return nil, false
	}
	return sl.patch, true
}

// Visible returns the cell ids of the last Update, nearest first.
func (s *Streamer) Visible() []int {
	return slices.Clone(s.visible)
}

// Level returns the current shared content.
func (s *Streamer) Level() *content.Level {
	return s.level.Load()
}

// Wait blocks until every scheduled batch has been integrated into the
// cache. It is meant for tests, tools and shutdown, not for frame loops.
func (s *Streamer) Wait() {
	s.inflight.Wait()
}

// Close stops scheduling, waits for in-flight builds, stops the internal
// worker pool and destroys every cached patch.
// Close is safe to call multiple times.
func (s *Streamer) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.inflight.Wait()
	if s.owned != nil {
		s.owned.Close()
	}
	n := s.clear()
	s.visible = nil
	Logger().Info("patchstream: closed", "entries", n)
}
