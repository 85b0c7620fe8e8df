package core

// RuntimeStats represents a point-in-time snapshot of runtime state, for
// pollers and debugging. Counts are sampled independently; the snapshot is
// not a consistent cut across streams.
type RuntimeStats struct {
	// ControlPending is the number of queued control tasks.
	ControlPending int

	// NullPending is the number of tasks queued on the null stream
	// (0 if the null stream was never created).
	NullPending int

	// UserStreams is the number of live user streams.
	UserStreams int

	// UserPending is the total number of tasks queued across user streams.
	UserPending int

	// TasksExecuted is the total number of tasks the worker has invoked.
	TasksExecuted uint64

	// Drains is the number of full-drain generations performed.
	Drains uint64

	// Closed reports whether Close has been called.
	Closed bool
}
