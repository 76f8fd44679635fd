package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"csms/internal/config"
	"csms/internal/models"
	"csms/internal/ocpp"

	"go.uber.org/zap"
)

// Service implements the business handlers behind the seven OCPP actions.
// All collaborators are injected; there is no ambient persistence handle.
type Service struct {
	chargePoints ChargePointStore
	statuses     ConnectorStatusStore
	transactions TransactionStore
	meterValues  MeterSampleStore
	auth         Authorizer

	logger       *zap.Logger
	bootInterval time.Duration
	stopPolicy   config.StopTxPolicy
	now          func() time.Time
}

func New(
	chargePoints ChargePointStore,
	statuses ConnectorStatusStore,
	transactions TransactionStore,
	meterValues MeterSampleStore,
	auth Authorizer,
	bootInterval time.Duration,
	stopPolicy config.StopTxPolicy,
	logger *zap.Logger,
) *Service {
	if bootInterval <= 0 {
		bootInterval = 60 * time.Second
	}
	return &Service{
		chargePoints: chargePoints,
		statuses:     statuses,
		transactions: transactions,
		meterValues:  meterValues,
		auth:         auth,
		logger:       logger,
		bootInterval: bootInterval,
		stopPolicy:   stopPolicy,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) handleBootNotification(ctx context.Context, chargePointID string, payload json.RawMessage) (any, error) {
	req, err := ocpp.ParseReq[ocpp.BootNotificationReq](ocpp.ActionBootNotification, payload)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cp := models.ChargePoint{
		ID:          chargePointID,
		OcppVersion: "1.6",
		Model:       req.ChargePointModel,
		Vendor:      req.ChargePointVendor,
		LastBoot:    now,
	}
	if err := s.chargePoints.Upsert(ctx, cp); err != nil {
		return nil, err
	}

	return ocpp.BootNotificationRes{
		Status:      ocpp.RegistrationAccepted,
		CurrentTime: now.Format(time.RFC3339),
		Interval:    int(s.bootInterval.Seconds()),
	}, nil
}

func (s *Service) handleHeartbeat(_ context.Context, _ string, payload json.RawMessage) (any, error) {
	if _, err := ocpp.ParseReq[ocpp.HeartbeatReq](ocpp.ActionHeartbeat, payload); err != nil {
		return nil, err
	}
	return ocpp.HeartbeatRes{CurrentTime: s.now().Format(time.RFC3339)}, nil
}

func (s *Service) handleStatusNotification(ctx context.Context, chargePointID string, payload json.RawMessage) (any, error) {
	req, err := ocpp.ParseReq[ocpp.StatusNotificationReq](ocpp.ActionStatusNotification, payload)
	if err != nil {
		return nil, err
	}

	// Missing timestamp defaults to arrival time.
	ts := s.now()
	if req.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			ts = t.UTC()
		}
	}

	ev := models.ConnectorStatusEvent{
		ChargePointID: chargePointID,
		ConnectorID:   *req.ConnectorID,
		Status:        req.Status,
		ErrorCode:     req.ErrorCode,
		Ts:            ts,
	}
	if err := s.statuses.Append(ctx, ev); err != nil {
		return nil, err
	}
	return ocpp.StatusNotificationRes{}, nil
}

func (s *Service) handleStartTransaction(ctx context.Context, chargePointID string, payload json.RawMessage) (any, error) {
	req, err := ocpp.ParseReq[ocpp.StartTransactionReq](ocpp.ActionStartTransaction, payload)
	if err != nil {
		return nil, err
	}

	authorized, err := s.auth.IsAuthorized(ctx, req.IdTag)
	if err != nil {
		return nil, err
	}
	if !authorized {
		// Denied tags never create a transaction row.
		return ocpp.StartTransactionRes{
			TransactionID: 0,
			IdTagInfo:     ocpp.IdTagInfo{Status: ocpp.AuthBlocked},
		}, nil
	}

	startTs, _ := time.Parse(time.RFC3339, req.Timestamp)
	id, err := s.transactions.Start(ctx, models.Transaction{
		ChargePointID: chargePointID,
		ConnectorID:   *req.ConnectorID,
		IdTag:         req.IdTag,
		MeterStart:    *req.MeterStart,
		StartTs:       startTs.UTC(),
		Status:        models.TxActive,
	})
	if err != nil {
		return nil, err
	}
	if id == 0 {
		// Store anomaly, not an authorization verdict. The wire answer is the
		// same Blocked/0 the original system gives, but the log tells the
		// causes apart.
		s.logger.Warn("transaction insert returned no id",
			zap.String("charge_point_id", chargePointID),
			zap.Int("connector_id", *req.ConnectorID),
			zap.String("id_tag", req.IdTag),
		)
		return ocpp.StartTransactionRes{
			TransactionID: 0,
			IdTagInfo:     ocpp.IdTagInfo{Status: ocpp.AuthBlocked},
		}, nil
	}

	return ocpp.StartTransactionRes{
		TransactionID: id,
		IdTagInfo:     ocpp.IdTagInfo{Status: ocpp.AuthAccepted},
	}, nil
}

func (s *Service) handleStopTransaction(ctx context.Context, chargePointID string, payload json.RawMessage) (any, error) {
	req, err := ocpp.ParseReq[ocpp.StopTransactionReq](ocpp.ActionStopTransaction, payload)
	if err != nil {
		return nil, err
	}

	stopTs, _ := time.Parse(time.RFC3339, req.Timestamp)
	strict := s.stopPolicy == config.StopTxStrict
	affected, err := s.transactions.Complete(ctx, *req.TransactionID, *req.MeterStop, stopTs.UTC(), strict)
	if err != nil {
		return nil, err
	}

	status := ocpp.AuthAccepted
	if strict && affected == 0 {
		status = ocpp.AuthInvalid
		s.logger.Warn("stop for unknown or completed transaction",
			zap.String("charge_point_id", chargePointID),
			zap.Int("transaction_id", *req.TransactionID),
		)
	}
	return ocpp.StopTransactionRes{IdTagInfo: &ocpp.IdTagInfo{Status: status}}, nil
}

func (s *Service) handleMeterValues(ctx context.Context, chargePointID string, payload json.RawMessage) (any, error) {
	req, err := ocpp.ParseReq[ocpp.MeterValuesReq](ocpp.ActionMeterValues, payload)
	if err != nil {
		return nil, err
	}

	var samples []models.MeterSample
	for _, mv := range req.MeterValue {
		ts, _ := time.Parse(time.RFC3339, mv.Timestamp)
		for _, sv := range mv.SampledValue {
			// Contract guarantees a numeric string.
			value, _ := strconv.ParseFloat(sv.Value, 64)

			measurand := sv.Measurand
			if measurand == "" {
				measurand = ocpp.DefaultMeasurand
			}
			unit := sv.Unit
			if unit == "" {
				unit = ocpp.DefaultUnit
			}
			var svCtx *string
			if sv.Context != "" {
				c := sv.Context
				svCtx = &c
			}
			samples = append(samples, models.MeterSample{
				ChargePointID: chargePointID,
				ConnectorID:   *req.ConnectorID,
				TransactionID: req.TransactionID,
				Ts:            ts.UTC(),
				Measurand:     measurand,
				Value:         value,
				Unit:          unit,
				Context:       svCtx,
			})
		}
	}

	if err := s.meterValues.InsertBatch(ctx, samples); err != nil {
		return nil, err
	}
	return ocpp.MeterValuesRes{}, nil
}

func (s *Service) handleAuthorize(ctx context.Context, chargePointID string, payload json.RawMessage) (any, error) {
	req, err := ocpp.ParseReq[ocpp.AuthorizeReq](ocpp.ActionAuthorize, payload)
	if err != nil {
		return nil, err
	}

	authorized, err := s.auth.IsAuthorized(ctx, req.IdTag)
	if err != nil {
		return nil, err
	}
	status := ocpp.AuthBlocked
	if authorized {
		status = ocpp.AuthAccepted
	}
	s.logger.Debug("authorize",
		zap.String("charge_point_id", chargePointID),
		zap.String("id_tag", req.IdTag),
		zap.String("status", status),
	)
	return ocpp.AuthorizeRes{IdTagInfo: ocpp.IdTagInfo{Status: status}}, nil
}
