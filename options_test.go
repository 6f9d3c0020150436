package patchstream

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultOptions(t *testing.T) {
	got := defaultOptions()
	want := options{
		reserveAttempts: DefaultReserveAttempts,
		removeAttempts:  DefaultRemoveAttempts,
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(options{})); diff != "" {
		t.Errorf("defaultOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestOptions(t *testing.T) {
	sched := &manualScheduler{}

	tests := []struct {
		name string
		opt  Option
		want func(o options) bool
	}{
		{"scheduler", WithScheduler(sched), func(o options) bool { return o.scheduler == sched }},
		{"workers", WithWorkers(3), func(o options) bool { return o.workers == 3 }},
		{"reserve attempts", WithReserveAttempts(9), func(o options) bool { return o.reserveAttempts == 9 }},
		{"reserve attempts floor", WithReserveAttempts(0), func(o options) bool { return o.reserveAttempts == 1 }},
		{"remove attempts", WithRemoveAttempts(2), func(o options) bool { return o.removeAttempts == 2 }},
		{"remove attempts floor", WithRemoveAttempts(-5), func(o options) bool { return o.removeAttempts == 0 }},
		{"max builds", WithMaxBuildsPerFrame(16), func(o options) bool { return o.maxBuildsPerFrame == 16 }},
		{"max builds floor", WithMaxBuildsPerFrame(-1), func(o options) bool { return o.maxBuildsPerFrame == 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			tt.opt(&o)
			if !tt.want(o) {
				t.Errorf("option not applied: %+v", o)
			}
		})
	}
}

func TestNew_OwnsSchedulerOnlyWhenNotGiven(t *testing.T) {
	idx := newFakeIndex(4)
	b := newFakeBuilder()

	s, err := New(idx, b, nil, WithWorkers(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.owned == nil || s.owned.Workers() != 2 {
		t.Error("expected an owned pool scheduler with 2 workers")
	}
	s.Close()

	sched := &manualScheduler{}
	s, err = New(idx, b, nil, WithScheduler(sched))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.owned != nil {
		t.Error("streamer must not own an injected scheduler")
	}
	s.Close()
}
