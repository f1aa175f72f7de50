package interfaces

import (
	"context"

	"github.com/orderstack/orderstack/dto"
)

// OrderService runs the ingestion pipeline for one sender and day.
type OrderService interface {
	Run(ctx context.Context, ownerID string, request dto.FetchOrdersRequest) (*dto.JobResult, error)
}
