package emit

import "go.uber.org/zap"

// ZapEmitter bridges engine events into a zap logger, so pipeline telemetry
// lands in the same structured log stream as the rest of the service.
//
// Events carrying an "error" meta key are logged at warn level, everything
// else at debug, keeping per-stage noise out of production info logs.
type ZapEmitter struct {
	log *zap.Logger
}

// NewZapEmitter creates a ZapEmitter. A nil logger is replaced with a no-op.
func NewZapEmitter(log *zap.Logger) *ZapEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapEmitter{log: log}
}

// Emit implements Emitter.
func (z *ZapEmitter) Emit(event Event) {
	fields := []zap.Field{
		zap.String("session", event.SessionID),
		zap.Int("step", event.Step),
		zap.String("node", event.NodeID),
	}
	if len(event.Meta) > 0 {
		fields = append(fields, zap.Any("meta", event.Meta))
	}

	if _, failed := event.Meta["error"]; failed {
		z.log.Warn(event.Msg, fields...)
		return
	}
	z.log.Debug(event.Msg, fields...)
}
