package metrics

import "expvar"

var (
	FramesReceived    = expvar.NewInt("stream_frames_received")
	FramesDispatched  = expvar.NewInt("stream_frames_dispatched")
	FramesDropped     = expvar.NewInt("stream_frames_dropped")
	StreamReconnects  = expvar.NewInt("stream_reconnects")
	SyncRuns          = expvar.NewInt("sync_runs")
	SyncErrors        = expvar.NewInt("sync_errors")
	HealthChecks      = expvar.NewInt("health_checks")
	Executions        = expvar.NewInt("executions")
	TransactionFaults = expvar.NewInt("transaction_faults")
	SnapshotRestores  = expvar.NewInt("snapshot_restores")
	AgentActions      = expvar.NewInt("agent_actions")
)
