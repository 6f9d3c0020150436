// Package patchstream streams render-ready terrain patches into a cache
// driven by what the camera can see.
//
// # Overview
//
// Every frame the render thread hands a view volume to [Streamer.Update].
// The streamer asks the spatial index which cells the view intersects,
// reserves a cache slot for each visible cell that has no entry yet, and
// schedules one background build per reservation. [Streamer.Draw] then
// issues draw calls for whatever patches are already resident. Geometry
// pops in on a later frame once its build completes.
//
// # Quick Start
//
//	tree, _ := spatial.NewQuadtree(worldBounds, 64)
//	builder, _ := patch.NewHALBuilderFromProvider(provider, tree)
//	s, _ := patchstream.New(tree, builder, level)
//	defer s.Close()
//
//	for frame := range frames {
//	    s.Update(patchstream.View{Volume: cam.Frustum(), Eye: cam.Eye})
//	    s.Draw(patch.NewPassRecorder(renderPass))
//	}
//
// # Cache entries
//
// A cell is Absent (no entry), Reserved (a build is in flight) or Resident
// (a patch is cached). The render thread is the only writer of
// reservations; build completions turn a reservation into a resident patch
// or remove it again on failure. At most one build is in flight per cell.
//
// Resident patches are never evicted while a level is active. [Streamer.Reset]
// switches the level, destroys every resident patch and empties the cache.
// Builds still running for the old level are not cancelled; their patches
// are destroyed as soon as they complete.
//
// # Threading
//
// Update, Draw, Prefetch, Reset and Close belong to the render thread and
// must not be called concurrently with each other. None of them waits for a
// build. Builds and their completion handling run on the scheduler's
// goroutines.
package patchstream
