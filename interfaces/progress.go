package interfaces

import "github.com/orderstack/orderstack/dto"

// ProgressRegistry fans job progress out to at most one subscriber per
// owner identity. Publishing with no subscriber is a silent no-op;
// a new subscription replaces any prior one for the same owner.
type ProgressRegistry interface {
	Subscribe(ownerID string) (<-chan dto.JobProgress, func())
	Publish(ownerID string, event dto.JobProgress)
}
