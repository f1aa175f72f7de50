package interfaces

import (
	"context"

	"github.com/orderstack/orderstack/dto"
)

// JobEventPublisher pushes durable job lifecycle events onto the bus.
type JobEventPublisher interface {
	PublishJobCompleted(ctx context.Context, result *dto.JobResult) error
	PublishJobFailed(ctx context.Context, jobID string, reason string) error
	Close() error
}
