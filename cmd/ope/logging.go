package main

import (
	"context"
	"fmt"
	"io"

	"github.com/srdjan/ope"
	"github.com/zoobzio/capitan"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a JSON logger at the named level writing to w.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

type eventField func(e *capitan.Event) (zap.Field, bool)

func stringField(name string, from func(*capitan.Event) (string, bool)) eventField {
	return func(e *capitan.Event) (zap.Field, bool) {
		v, ok := from(e)
		if !ok || v == "" {
			return zap.Field{}, false
		}
		return zap.String(name, v), true
	}
}

func intField(name string, from func(*capitan.Event) (int, bool)) eventField {
	return func(e *capitan.Event) (zap.Field, bool) {
		v, ok := from(e)
		if !ok {
			return zap.Field{}, false
		}
		return zap.Int(name, v), true
	}
}

func floatField(name string, from func(*capitan.Event) (float64, bool)) eventField {
	return func(e *capitan.Event) (zap.Field, bool) {
		v, ok := from(e)
		if !ok {
			return zap.Field{}, false
		}
		return zap.Float64(name, v), true
	}
}

var eventFields = []eventField{
	stringField("request_id", ope.RequestIDKey.From),
	stringField("task_type", ope.TaskTypeKey.From),
	stringField("domain", ope.DomainKey.From),
	floatField("ambiguity", ope.AmbiguityKey.From),
	stringField("enhancements", ope.EnhancementsKey.From),
	stringField("context", ope.ContextKey.From),
	stringField("adapter", ope.AdapterKey.From),
	stringField("model", ope.ModelKey.From),
	floatField("temperature", ope.TemperatureKey.From),
	intField("max_tokens", ope.MaxTokensKey.From),
	stringField("error", ope.ErrorKey.From),
	stringField("error_kind", ope.ErrorKindKey.From),
	intField("http_status", ope.HTTPStatusCodeKey.From),
	stringField("repair_reason", ope.RepairReasonKey.From),
	intField("duration_ms", ope.DurationMsKey.From),
	intField("prompt_tokens", ope.PromptTokensKey.From),
	intField("completion_tokens", ope.CompletionTokensKey.From),
	stringField("finish_reason", ope.FinishReasonKey.From),
}

var warnSignals = map[capitan.Signal]bool{
	ope.RequestFailed:     true,
	ope.AdapterCallFailed: true,
	ope.OverlayRejected:   true,
}

// forwardEvents mirrors every capitan event into the logger. Failures log
// at warn, everything else at debug. The returned func stops forwarding.
func forwardEvents(logger *zap.Logger) func() {
	observer := capitan.Observe(func(_ context.Context, e *capitan.Event) {
		fields := make([]zap.Field, 0, 4)
		for _, f := range eventFields {
			if field, ok := f(e); ok {
				fields = append(fields, field)
			}
		}
		signal := e.Signal()
		if warnSignals[signal] {
			logger.Warn(signal.Name(), fields...)
			return
		}
		logger.Debug(signal.Name(), fields...)
	})
	return func() { observer.Close() }
}
