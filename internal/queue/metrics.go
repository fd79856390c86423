package queue

import "time"

// Metrics is a point-in-time snapshot of queue activity.
//
// Executed counts every job the worker picked up, including ones that
// completed with an error. Discarded counts jobs dropped by Clear or
// Close before they ever ran. The averages are recency-weighted, so
// they track current behavior rather than all-time history.
type Metrics struct {
	Executed  int
	Failed    int
	Discarded int
	AvgWait   time.Duration
	AvgRun    time.Duration
}
