package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"csms/internal/config"
	"csms/internal/models"
	"csms/internal/ocpp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore implements every persistence gateway the handlers consume.
type fakeStore struct {
	chargePoints map[string]models.ChargePoint
	statuses     []models.ConnectorStatusEvent
	transactions map[int]*models.Transaction
	samples      []models.MeterSample
	tags         map[string]bool

	nextTxID         int
	startReturnsZero bool
	failWith         error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chargePoints: make(map[string]models.ChargePoint),
		transactions: make(map[int]*models.Transaction),
		tags:         make(map[string]bool),
		nextTxID:     1,
	}
}

func (f *fakeStore) Upsert(_ context.Context, cp models.ChargePoint) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.chargePoints[cp.ID] = cp
	return nil
}

func (f *fakeStore) Append(_ context.Context, ev models.ConnectorStatusEvent) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.statuses = append(f.statuses, ev)
	return nil
}

func (f *fakeStore) Start(_ context.Context, tx models.Transaction) (int, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	if f.startReturnsZero {
		return 0, nil
	}
	tx.ID = f.nextTxID
	f.nextTxID++
	f.transactions[tx.ID] = &tx
	return tx.ID, nil
}

func (f *fakeStore) Complete(_ context.Context, id int, meterStop float64, stopTs time.Time, onlyActive bool) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	tx, ok := f.transactions[id]
	if !ok {
		return 0, nil
	}
	if onlyActive && tx.Status != models.TxActive {
		return 0, nil
	}
	tx.MeterStop = &meterStop
	tx.StopTs = &stopTs
	tx.Status = models.TxCompleted
	return 1, nil
}

func (f *fakeStore) InsertBatch(_ context.Context, samples []models.MeterSample) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.samples = append(f.samples, samples...)
	return nil
}

func (f *fakeStore) IsAuthorized(_ context.Context, idTag string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	return f.tags[idTag], nil
}

func newTestService(f *fakeStore, policy config.StopTxPolicy) *Service {
	return New(f, f, f, f, f, 60*time.Second, policy, zap.NewNop())
}

func dispatch(t *testing.T, s *Service, action, payload string) (any, *ocpp.CallFault) {
	t.Helper()
	return s.Dispatch(context.Background(), "CP-1", action, json.RawMessage(payload))
}

func TestBootNotificationAccepted(t *testing.T) {
	f := newFakeStore()
	s := newTestService(f, config.StopTxPermissive)

	res, fault := dispatch(t, s, "BootNotification",
		`{"chargePointModel":"Terra54","chargePointVendor":"ABB"}`)
	require.Nil(t, fault)

	boot := res.(ocpp.BootNotificationRes)
	assert.Equal(t, "Accepted", boot.Status)
	assert.Equal(t, 60, boot.Interval)
	_, err := time.Parse(time.RFC3339, boot.CurrentTime)
	assert.NoError(t, err)

	cp, ok := f.chargePoints["CP-1"]
	require.True(t, ok, "boot must upsert the charge point")
	assert.Equal(t, "Terra54", cp.Model)
	assert.Equal(t, "ABB", cp.Vendor)
	assert.Equal(t, "1.6", cp.OcppVersion)
	assert.False(t, cp.LastBoot.IsZero())
}

func TestHeartbeat(t *testing.T) {
	s := newTestService(newFakeStore(), config.StopTxPermissive)

	res, fault := dispatch(t, s, "Heartbeat", `{}`)
	require.Nil(t, fault)

	hb := res.(ocpp.HeartbeatRes)
	_, err := time.Parse(time.RFC3339, hb.CurrentTime)
	assert.NoError(t, err)
}

func TestStatusNotificationDefaultsTimestamp(t *testing.T) {
	f := newFakeStore()
	s := newTestService(f, config.StopTxPermissive)

	before := time.Now().UTC()
	_, fault := dispatch(t, s, "StatusNotification",
		`{"connectorId":0,"errorCode":"NoError","status":"Available"}`)
	require.Nil(t, fault)

	require.Len(t, f.statuses, 1)
	ev := f.statuses[0]
	assert.Equal(t, "CP-1", ev.ChargePointID)
	assert.Equal(t, 0, ev.ConnectorID)
	assert.Equal(t, "Available", ev.Status)
	assert.False(t, ev.Ts.Before(before), "missing timestamp defaults to arrival time")
}

func TestStatusNotificationKeepsReportedTimestamp(t *testing.T) {
	f := newFakeStore()
	s := newTestService(f, config.StopTxPermissive)

	_, fault := dispatch(t, s, "StatusNotification",
		`{"connectorId":2,"errorCode":"NoError","status":"Charging","timestamp":"2024-03-01T08:30:00Z"}`)
	require.Nil(t, fault)

	require.Len(t, f.statuses, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), f.statuses[0].Ts)
}

func TestStartTransactionDenied(t *testing.T) {
	f := newFakeStore()
	s := newTestService(f, config.StopTxPermissive)

	res, fault := dispatch(t, s, "StartTransaction",
		`{"connectorId":1,"idTag":"UNKNOWN","meterStart":100,"timestamp":"2024-01-01T10:00:00Z"}`)
	require.Nil(t, fault)

	start := res.(ocpp.StartTransactionRes)
	assert.Equal(t, 0, start.TransactionID)
	assert.Equal(t, "Blocked", start.IdTagInfo.Status)
	assert.Empty(t, f.transactions, "denied tags never create a transaction row")
}

func TestStartTransactionAuthorized(t *testing.T) {
	f := newFakeStore()
	f.tags["TAG1"] = true
	s := newTestService(f, config.StopTxPermissive)

	res, fault := dispatch(t, s, "StartTransaction",
		`{"connectorId":1,"idTag":"TAG1","meterStart":100,"timestamp":"2024-01-01T10:00:00Z"}`)
	require.Nil(t, fault)

	start := res.(ocpp.StartTransactionRes)
	assert.Equal(t, "Accepted", start.IdTagInfo.Status)
	require.NotZero(t, start.TransactionID)

	tx := f.transactions[start.TransactionID]
	require.NotNil(t, tx)
	assert.Equal(t, models.TxActive, tx.Status)
	assert.Equal(t, "CP-1", tx.ChargePointID)
	assert.Equal(t, 1, tx.ConnectorID)
	assert.Equal(t, "TAG1", tx.IdTag)
	assert.Equal(t, float64(100), tx.MeterStart)
}

func TestStartTransactionInsertAnomaly(t *testing.T) {
	f := newFakeStore()
	f.tags["TAG1"] = true
	f.startReturnsZero = true
	s := newTestService(f, config.StopTxPermissive)

	res, fault := dispatch(t, s, "StartTransaction",
		`{"connectorId":1,"idTag":"TAG1","meterStart":100,"timestamp":"2024-01-01T10:00:00Z"}`)
	require.Nil(t, fault)

	start := res.(ocpp.StartTransactionRes)
	assert.Equal(t, 0, start.TransactionID)
	assert.Equal(t, "Blocked", start.IdTagInfo.Status)
}

func TestStartStopRoundTrip(t *testing.T) {
	f := newFakeStore()
	f.tags["TAG1"] = true
	s := newTestService(f, config.StopTxPermissive)

	res, fault := dispatch(t, s, "StartTransaction",
		`{"connectorId":1,"idTag":"TAG1","meterStart":100,"timestamp":"2024-01-01T10:00:00Z"}`)
	require.Nil(t, fault)
	txID := res.(ocpp.StartTransactionRes).TransactionID

	res, fault = s.Dispatch(context.Background(), "CP-1", "StopTransaction",
		json.RawMessage(`{"transactionId":`+jsonInt(txID)+`,"meterStop":1700,"timestamp":"2024-01-01T11:00:00Z"}`))
	require.Nil(t, fault)

	stop := res.(ocpp.StopTransactionRes)
	require.NotNil(t, stop.IdTagInfo)
	assert.Equal(t, "Accepted", stop.IdTagInfo.Status)

	tx := f.transactions[txID]
	require.NotNil(t, tx)
	assert.Equal(t, models.TxCompleted, tx.Status)
	require.NotNil(t, tx.MeterStop)
	assert.Equal(t, float64(1700), *tx.MeterStop)
	require.NotNil(t, tx.StopTs)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), *tx.StopTs)
}

func TestStopTransactionPermissiveUnknownID(t *testing.T) {
	s := newTestService(newFakeStore(), config.StopTxPermissive)

	res, fault := dispatch(t, s, "StopTransaction",
		`{"transactionId":999,"meterStop":1700,"timestamp":"2024-01-01T11:00:00Z"}`)
	require.Nil(t, fault)
	assert.Equal(t, "Accepted", res.(ocpp.StopTransactionRes).IdTagInfo.Status)
}

func TestStopTransactionStrictUnknownID(t *testing.T) {
	s := newTestService(newFakeStore(), config.StopTxStrict)

	res, fault := dispatch(t, s, "StopTransaction",
		`{"transactionId":999,"meterStop":1700,"timestamp":"2024-01-01T11:00:00Z"}`)
	require.Nil(t, fault)
	assert.Equal(t, "Invalid", res.(ocpp.StopTransactionRes).IdTagInfo.Status)
}

func TestStopTransactionStrictAlreadyCompleted(t *testing.T) {
	f := newFakeStore()
	f.tags["TAG1"] = true
	s := newTestService(f, config.StopTxStrict)

	res, fault := dispatch(t, s, "StartTransaction",
		`{"connectorId":1,"idTag":"TAG1","meterStart":100,"timestamp":"2024-01-01T10:00:00Z"}`)
	require.Nil(t, fault)
	txID := res.(ocpp.StartTransactionRes).TransactionID

	stopPayload := `{"transactionId":` + jsonInt(txID) + `,"meterStop":1700,"timestamp":"2024-01-01T11:00:00Z"}`
	res, fault = dispatch(t, s, "StopTransaction", stopPayload)
	require.Nil(t, fault)
	assert.Equal(t, "Accepted", res.(ocpp.StopTransactionRes).IdTagInfo.Status)

	res, fault = dispatch(t, s, "StopTransaction", stopPayload)
	require.Nil(t, fault)
	assert.Equal(t, "Invalid", res.(ocpp.StopTransactionRes).IdTagInfo.Status)
}

func TestMeterValuesPersistsEverySample(t *testing.T) {
	f := newFakeStore()
	s := newTestService(f, config.StopTxPermissive)

	res, fault := dispatch(t, s, "MeterValues", `{
		"connectorId":1,
		"transactionId":7,
		"meterValue":[
			{"timestamp":"2024-01-01T10:00:00Z","sampledValue":[{"value":"1500"},{"value":"230.5","measurand":"Voltage","unit":"V","context":"Sample.Periodic"}]},
			{"timestamp":"2024-01-01T10:01:00Z","sampledValue":[{"value":"1600"}]}
		]
	}`)
	require.Nil(t, fault)
	assert.Equal(t, ocpp.MeterValuesRes{}, res)

	require.Len(t, f.samples, 3)

	first := f.samples[0]
	assert.Equal(t, "CP-1", first.ChargePointID)
	assert.Equal(t, 1, first.ConnectorID)
	require.NotNil(t, first.TransactionID)
	assert.Equal(t, 7, *first.TransactionID)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), first.Ts)
	assert.Equal(t, "Energy.Active.Import.Register", first.Measurand)
	assert.Equal(t, "Wh", first.Unit)
	assert.Equal(t, float64(1500), first.Value)
	assert.Nil(t, first.Context)

	second := f.samples[1]
	assert.Equal(t, "Voltage", second.Measurand)
	assert.Equal(t, "V", second.Unit)
	assert.Equal(t, 230.5, second.Value)
	require.NotNil(t, second.Context)
	assert.Equal(t, "Sample.Periodic", *second.Context)

	third := f.samples[2]
	assert.Equal(t, time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC), third.Ts)
	assert.Equal(t, float64(1600), third.Value)
}

func TestAuthorize(t *testing.T) {
	f := newFakeStore()
	f.tags["TAG1"] = true
	f.tags["REVOKED"] = false
	s := newTestService(f, config.StopTxPermissive)

	res, fault := dispatch(t, s, "Authorize", `{"idTag":"TAG1"}`)
	require.Nil(t, fault)
	assert.Equal(t, "Accepted", res.(ocpp.AuthorizeRes).IdTagInfo.Status)

	res, fault = dispatch(t, s, "Authorize", `{"idTag":"REVOKED"}`)
	require.Nil(t, fault)
	assert.Equal(t, "Blocked", res.(ocpp.AuthorizeRes).IdTagInfo.Status)

	res, fault = dispatch(t, s, "Authorize", `{"idTag":"NEVER-SEEN"}`)
	require.Nil(t, fault)
	assert.Equal(t, "Blocked", res.(ocpp.AuthorizeRes).IdTagInfo.Status,
		"unknown tags fail closed")
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
