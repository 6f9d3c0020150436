package patchstream

import "github.com/gogpu/patchstream/cache"

// Stats is a snapshot of streamer counters.
type Stats struct {
	// Frame is the number of Update calls so far.
	Frame uint64

	// Resident and Reserved count the current cache entries by state.
	Resident int
	Reserved int

	// Scheduled counts builds handed to the scheduler. Succeeded, Failed
	// and Stale count their outcomes; Stale builds finished after a reset.
	Scheduled uint64
	Succeeded uint64
	Failed    uint64
	Stale     uint64

	// Unreserved counts cells skipped because of shard contention.
	Unreserved uint64

	// Disposed counts destroyed patches.
	Disposed uint64

	// LastFrameTriangles is the triangle count of the last Draw.
	LastFrameTriangles int

	// Scheduler is filled in when the scheduler reports its own counters,
	// as PoolScheduler does.
	Scheduler SchedulerStats

	Cache cache.Stats
}

// Stats returns current statistics. Counts taken while builds complete may
// be slightly out of step with each other.
func (s *Streamer) Stats() Stats {
	st := Stats{
		Frame:              s.frame.Load(),
		Scheduled:          s.scheduled.Load(),
		Succeeded:          s.succeeded.Load(),
		Failed:             s.failed.Load(),
		Stale:              s.stale.Load(),
		Unreserved:         s.unreserved.Load(),
		Disposed:           s.disposed.Load(),
		LastFrameTriangles: int(s.lastTriangles.Load()),
		Cache:              s.entries.Stats(),
	}
	s.entries.Range(func(_ int, sl *slot) bool {
		if sl.patch == nil {
			st.Reserved++
		} else {
			st.Resident++
		}
		return true
	})
	if r, ok := s.scheduler.(interface{ Stats() SchedulerStats }); ok {
		st.Scheduler = r.Stats()
	}
	return st
}
