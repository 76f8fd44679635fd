package ocpp

// Action is the closed set of OCPP 1.6 actions this central system handles.
type Action string

const (
	ActionBootNotification   Action = "BootNotification"
	ActionHeartbeat          Action = "Heartbeat"
	ActionStatusNotification Action = "StatusNotification"
	ActionStartTransaction   Action = "StartTransaction"
	ActionStopTransaction    Action = "StopTransaction"
	ActionMeterValues        Action = "MeterValues"
	ActionAuthorize          Action = "Authorize"
)

// ParseAction matches an action name exactly and case-sensitively.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionBootNotification, ActionHeartbeat, ActionStatusNotification,
		ActionStartTransaction, ActionStopTransaction, ActionMeterValues,
		ActionAuthorize:
		return Action(s), true
	}
	return "", false
}

// Authorization statuses carried in IdTagInfo.
const (
	AuthAccepted     = "Accepted"
	AuthBlocked      = "Blocked"
	AuthExpired      = "Expired"
	AuthInvalid      = "Invalid"
	AuthConcurrentTx = "ConcurrentTx"
)

// Registration statuses for BootNotification.
const (
	RegistrationAccepted = "Accepted"
	RegistrationPending  = "Pending"
	RegistrationRejected = "Rejected"
)

// Defaults applied to sampled values that omit measurand or unit.
const (
	DefaultMeasurand = "Energy.Active.Import.Register"
	DefaultUnit      = "Wh"
)

type IdTagInfo struct {
	Status string `json:"status" validate:"required,oneof=Accepted Blocked Expired Invalid ConcurrentTx"`
}

type BootNotificationReq struct {
	ChargePointModel        string `json:"chargePointModel" validate:"required"`
	ChargePointVendor       string `json:"chargePointVendor" validate:"required"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
	Iccid                   string `json:"iccid,omitempty"`
	Imsi                    string `json:"imsi,omitempty"`
	MeterType               string `json:"meterType,omitempty"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty"`
}

type BootNotificationRes struct {
	Status      string `json:"status" validate:"required,oneof=Accepted Pending Rejected"`
	CurrentTime string `json:"currentTime" validate:"required"`
	Interval    int    `json:"interval" validate:"required"`
}

type HeartbeatReq struct{}

type HeartbeatRes struct {
	CurrentTime string `json:"currentTime" validate:"required"`
}

type StatusNotificationReq struct {
	ConnectorID     *int   `json:"connectorId" validate:"required,gte=0"`
	ErrorCode       string `json:"errorCode" validate:"required"`
	Status          string `json:"status" validate:"required"`
	Timestamp       string `json:"timestamp,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Info            string `json:"info,omitempty"`
	VendorID        string `json:"vendorId,omitempty"`
	VendorErrorCode string `json:"vendorErrorCode,omitempty"`
}

type StatusNotificationRes struct{}

type StartTransactionReq struct {
	ConnectorID   *int     `json:"connectorId" validate:"required,gte=0"`
	IdTag         string   `json:"idTag" validate:"required"`
	MeterStart    *float64 `json:"meterStart" validate:"required"`
	Timestamp     string   `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	ReservationID *int     `json:"reservationId,omitempty"`
}

type StartTransactionRes struct {
	TransactionID int       `json:"transactionId"`
	IdTagInfo     IdTagInfo `json:"idTagInfo"`
}

type StopTransactionReq struct {
	TransactionID *int     `json:"transactionId" validate:"required"`
	IdTag         string   `json:"idTag,omitempty"`
	MeterStop     *float64 `json:"meterStop" validate:"required"`
	Timestamp     string   `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Reason        string   `json:"reason,omitempty"`
}

type StopTransactionRes struct {
	IdTagInfo *IdTagInfo `json:"idTagInfo,omitempty"`
}

type SampledValue struct {
	Value     string `json:"value" validate:"required,numeric"`
	Measurand string `json:"measurand,omitempty"`
	Unit      string `json:"unit,omitempty"`
	Context   string `json:"context,omitempty"`
}

type MeterValueEntry struct {
	Timestamp    string         `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	SampledValue []SampledValue `json:"sampledValue" validate:"required,dive"`
}

type MeterValuesReq struct {
	ConnectorID   *int              `json:"connectorId" validate:"required,gte=0"`
	TransactionID *int              `json:"transactionId" validate:"required"`
	MeterValue    []MeterValueEntry `json:"meterValue" validate:"required,dive"`
}

type MeterValuesRes struct{}

type AuthorizeReq struct {
	IdTag string `json:"idTag" validate:"required"`
}

type AuthorizeRes struct {
	IdTagInfo IdTagInfo `json:"idTagInfo"`
}
