package service

import (
	"context"
	"encoding/json"
	"errors"

	"csms/internal/ocpp"

	"go.uber.org/zap"
)

// Dispatch routes one decoded CALL to its handler and reduces every failure
// to a CallFault, so the transport can always answer with a single frame and
// never tears down the connection over a handler error.
func (s *Service) Dispatch(ctx context.Context, chargePointID, action string, payload json.RawMessage) (any, *ocpp.CallFault) {
	act, ok := ocpp.ParseAction(action)
	if !ok {
		s.logger.Info("unsupported action",
			zap.String("charge_point_id", chargePointID),
			zap.String("action", action),
		)
		return nil, ocpp.NotImplementedFault(action)
	}

	var (
		res any
		err error
	)
	switch act {
	case ocpp.ActionBootNotification:
		res, err = s.handleBootNotification(ctx, chargePointID, payload)
	case ocpp.ActionHeartbeat:
		res, err = s.handleHeartbeat(ctx, chargePointID, payload)
	case ocpp.ActionStatusNotification:
		res, err = s.handleStatusNotification(ctx, chargePointID, payload)
	case ocpp.ActionStartTransaction:
		res, err = s.handleStartTransaction(ctx, chargePointID, payload)
	case ocpp.ActionStopTransaction:
		res, err = s.handleStopTransaction(ctx, chargePointID, payload)
	case ocpp.ActionMeterValues:
		res, err = s.handleMeterValues(ctx, chargePointID, payload)
	case ocpp.ActionAuthorize:
		res, err = s.handleAuthorize(ctx, chargePointID, payload)
	}
	if err != nil {
		return nil, s.faultFor(chargePointID, act, err)
	}

	// A response that fails its own contract is a server bug; it must not
	// reach the wire.
	if err := ocpp.ValidateRes(act, res); err != nil {
		s.logger.Error("server built an invalid response",
			zap.String("charge_point_id", chargePointID),
			zap.String("action", string(act)),
			zap.Error(err),
		)
		return nil, ocpp.InternalFault(errors.New("invalid response payload"))
	}
	return res, nil
}

func (s *Service) faultFor(chargePointID string, act ocpp.Action, err error) *ocpp.CallFault {
	var ve *ocpp.ValidationError
	if errors.As(err, &ve) {
		s.logger.Info("payload rejected",
			zap.String("charge_point_id", chargePointID),
			zap.String("action", string(act)),
			zap.Error(ve),
		)
		return ve.Fault()
	}

	var cf *ocpp.CallFault
	if errors.As(err, &cf) {
		return cf
	}

	s.logger.Error("handler failed",
		zap.String("charge_point_id", chargePointID),
		zap.String("action", string(act)),
		zap.Error(err),
	)
	return ocpp.InternalFault(err)
}
