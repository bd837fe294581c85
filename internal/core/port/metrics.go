package port

import "time"

// OperationRecorder records the outcome and latency of service operations.
type OperationRecorder interface {
	Observe(operation, outcome string, elapsed time.Duration)
}
