package models

import "time"

type ChargePoint struct {
	ID          string
	OcppVersion string
	Model       string
	Vendor      string
	LastBoot    time.Time
}

// ConnectorStatusEvent is an append-only status report. Connector 0 denotes
// the station as a whole.
type ConnectorStatusEvent struct {
	ChargePointID string
	ConnectorID   int
	Status        string
	ErrorCode     string
	Ts            time.Time
}

type TransactionStatus string

const (
	TxActive    TransactionStatus = "Active"
	TxCompleted TransactionStatus = "Completed"
)

type Transaction struct {
	ID            int
	ChargePointID string
	ConnectorID   int
	IdTag         string
	MeterStart    float64
	StartTs       time.Time
	MeterStop     *float64
	StopTs        *time.Time
	Status        TransactionStatus
}

type MeterSample struct {
	ChargePointID string
	ConnectorID   int
	TransactionID *int
	Ts            time.Time
	Measurand     string
	Value         float64
	Unit          string
	Context       *string
}

type IdTagAuthorization struct {
	IdTag        string
	IsAuthorized bool
}

// ConfigKey is a charge-point-scoped configuration entry exposed through the
// admin API.
type ConfigKey struct {
	ChargePointID string
	Key           string
	Value         string
	UpdatedAt     time.Time
}
