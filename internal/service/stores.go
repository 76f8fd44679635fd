package service

import (
	"context"
	"time"

	"csms/internal/models"
)

// Persistence gateways consumed by the message handlers. Implementations live
// in internal/repo; tests substitute fakes.

type ChargePointStore interface {
	Upsert(ctx context.Context, cp models.ChargePoint) error
}

type ConnectorStatusStore interface {
	Append(ctx context.Context, ev models.ConnectorStatusEvent) error
}

type TransactionStore interface {
	// Start inserts an Active transaction and returns the generated id.
	Start(ctx context.Context, tx models.Transaction) (int, error)
	// Complete finishes a transaction by id and reports how many rows
	// matched. onlyActive restricts the update to rows still Active.
	Complete(ctx context.Context, id int, meterStop float64, stopTs time.Time, onlyActive bool) (int64, error)
}

type MeterSampleStore interface {
	InsertBatch(ctx context.Context, samples []models.MeterSample) error
}

// Authorizer is the gate in front of StartTransaction and the lookup behind
// Authorize. Unknown tags are not authorized.
type Authorizer interface {
	IsAuthorized(ctx context.Context, idTag string) (bool, error)
}
