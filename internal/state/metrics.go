package state

// Metric name constants recorded by the task pipeline and reshard engine.
const (
	MetricTasksAccepted      = "tasks.accepted"
	MetricTasksSucceeded     = "tasks.succeeded"
	MetricTasksFailed        = "tasks.failed"
	MetricReshardsInFlight   = "reshard.in_flight"
	MetricReshardSlotsTotal  = "reshard.slots.total"
	MetricReshardSlotsMoved  = "reshard.slots.moved"
	MetricReshardDurationSec = "reshard.duration.seconds"
	MetricFeedbackQueueDepth = "pipeline.feedback.depth"
	MetricIngressQueueDepth  = "pipeline.ingress.depth"
)
