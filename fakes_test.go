package patchstream

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/patchstream/content"
	"github.com/gogpu/patchstream/patch"
	"github.com/gogpu/patchstream/spatial"
)

// fakeIndex has n cells in a row along +X with centers at x = 10*id.
// CellsIntersecting ignores the volume and returns the cells set by show.
type fakeIndex struct {
	mu    sync.Mutex
	cells []spatial.Cell
	view  []int
}

func newFakeIndex(n int) *fakeIndex {
	x := &fakeIndex{}
	for id := range n {
		c := mgl32.Vec3{float32(id) * 10, 0, 0}
		x.cells = append(x.cells, spatial.Cell{
			ID:     id,
			Bounds: spatial.Box(c.Sub(mgl32.Vec3{5, 5, 5}), c.Add(mgl32.Vec3{5, 5, 5})),
			Center: c,
		})
	}
	return x
}

func (x *fakeIndex) show(ids ...int) {
	x.mu.Lock()
	x.view = ids
	x.mu.Unlock()
}

func (x *fakeIndex) LeafCells() []spatial.Cell {
	return append([]spatial.Cell(nil), x.cells...)
}

func (x *fakeIndex) CellsIntersecting(spatial.Volume) []spatial.Cell {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]spatial.Cell, 0, len(x.view))
	for _, id := range x.view {
		out = append(out, x.cells[id])
	}
	return out
}

// fakeBuilder builds one-triangle patches and records what happens to them.
type fakeBuilder struct {
	mu        sync.Mutex
	calls     map[int]int
	active    map[int]int
	maxActive map[int]int
	released  map[int]int
	levels    map[int]*content.Level
	gates     map[int]chan struct{}
	failures  map[int]error
	panics    map[int]bool
	nilPatch  map[int]bool
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{
		calls:     make(map[int]int),
		active:    make(map[int]int),
		maxActive: make(map[int]int),
		released:  make(map[int]int),
		levels:    make(map[int]*content.Level),
		gates:     make(map[int]chan struct{}),
		failures:  make(map[int]error),
		panics:    make(map[int]bool),
		nilPatch:  make(map[int]bool),
	}
}

// gate makes builds of id block until the returned func is called.
func (b *fakeBuilder) gate(id int) (open func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.gates[id] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (b *fakeBuilder) fail(id int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, id)
		return
	}
	b.failures[id] = err
}

func (b *fakeBuilder) Build(id int, level *content.Level) (*patch.Patch, error) {
	b.mu.Lock()
	b.calls[id]++
	b.active[id]++
	b.maxActive[id] = max(b.maxActive[id], b.active[id])
	b.levels[id] = level
	gate := b.gates[id]
	err := b.failures[id]
	doPanic := b.panics[id]
	noPatch := b.nilPatch[id]
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.active[id]--
		b.mu.Unlock()
	}()

	if gate != nil {
		<-gate
	}
	if doPanic {
		panic("mesh assembly exploded")
	}
	if err != nil {
		return nil, err
	}
	if noPatch {
		return nil, nil
	}
	return patch.New(id, patch.Resources{IndexCount: 3}, func() {
		b.mu.Lock()
		b.released[id]++
		b.mu.Unlock()
	}), nil
}

func (b *fakeBuilder) callCount(id int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[id]
}

func (b *fakeBuilder) releaseCount(id int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released[id]
}

// manualScheduler queues batches until the test runs them.
type manualScheduler struct {
	mu      sync.Mutex
	pending []pendingBatch
	names   []string
}

type pendingBatch struct {
	name  string
	tasks []BuildTask
	done  func(string, []BuildOutcome)
}

func (m *manualScheduler) Schedule(name string, tasks []BuildTask, done func(string, []BuildOutcome)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, pendingBatch{name: name, tasks: tasks, done: done})
	m.names = append(m.names, name)
}

func (m *manualScheduler) batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// runNext runs the oldest pending batch synchronously.
func (m *manualScheduler) runNext(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		t.Fatal("no pending batch")
	}
	b := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()

	outcomes := make([]BuildOutcome, len(b.tasks))
	for i, task := range b.tasks {
		res, err := task()
		outcomes[i] = BuildOutcome{Completed: true, Result: res, Err: err}
	}
	b.done(b.name, outcomes)
}

func (m *manualScheduler) runAll(t *testing.T) {
	t.Helper()
	for m.batches() > 0 {
		m.runNext(t)
	}
}

// recordingDraw records the cells it was asked to draw.
type recordingDraw struct {
	cells []int
}

func (d *recordingDraw) IssueDraw(p *patch.Patch) int {
	d.cells = append(d.cells, p.CellID())
	return p.TriangleCount()
}

// captureLogs routes the package logger into a buffer for the test.
func captureLogs(t *testing.T, level slog.Level) *syncBuffer {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	buf := &syncBuffer{}
	SetLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})))
	return buf
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of pool
// goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLevel(t *testing.T, name string) *content.Level {
	t.Helper()
	h, err := content.NewHeightmap(2, 2, []float32{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("NewHeightmap: %v", err)
	}
	l, err := content.NewLevel(name, spatial.Box(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{100, 1, 100}), h, nil)
	if err != nil {
		t.Fatalf("NewLevel: %v", err)
	}
	return l
}
