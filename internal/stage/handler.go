package stage

import (
	"context"

	"notesmith/internal/queue"
)

// Executor describes the contract the coordinator needs from each stage.
// Executors never write to the store; the coordinator persists the patch
// carried by a successful Result.
type Executor interface {
	Name() Name
	Execute(ctx context.Context, job *queue.Job) Result
	HealthCheck(ctx context.Context) Health
}
