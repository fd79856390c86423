// Package progress renders the live progress bar and carries the shared
// activity flag that keeps two hierarchies from painting bars over each
// other.
//
// # Overview
//
// The display draws exactly one in-place bar at a time, rewriting the
// current line with carriage returns. It refuses work while it is
// disabled, while the output is not a terminal, or while another bar is
// still live; callers are expected to degrade to running without an
// indicator when that happens.
//
// The Flag is process-coordination state made explicit: every scheduler
// hierarchy that might show a bar is handed the same *Flag, and only
// the holder that set it may show one.
//
// # Example
//
//	display := progress.NewDisplay()
//	tracker, err := display.NewItem("index rebuild", 100)
//	if err != nil {
//	    // no terminal, disabled or busy: continue without a bar
//	}
//	tracker.CompleteWork(10)
//	tracker.Finish()
package progress
