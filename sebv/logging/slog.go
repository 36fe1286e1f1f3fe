package logging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
)

// SlogHandler is a slog.Handler writing through a zerolog logger, so library
// packages that log with slog end up in the application sinks.
type SlogHandler struct {
	logger zerolog.Logger
	prefix string
}

var _ slog.Handler = (*SlogHandler)(nil)

func NewSlogHandler(logger zerolog.Logger) *SlogHandler {
	return &SlogHandler{logger: logger}
}

// ZerologLevel maps a slog level onto the closest zerolog level.
func ZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelDebug:
		return zerolog.TraceLevel
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	l := ZerologLevel(level)
	return l >= h.logger.GetLevel() && l >= zerolog.GlobalLevel()
}

func (h *SlogHandler) Handle(_ context.Context, r slog.Record) error {
	event := h.logger.WithLevel(ZerologLevel(r.Level))
	if event == nil {
		return nil
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(event, h.prefix, a)
		return true
	})
	event.Msg(r.Message)
	return nil
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	ctx := h.logger.With()
	for _, a := range attrs {
		ctx = appendContext(ctx, h.prefix, a)
	}
	return &SlogHandler{logger: ctx.Logger(), prefix: h.prefix}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, prefix: h.prefix + name + "."}
}

func appendAttr(e *zerolog.Event, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefix + a.Key
	v := a.Value

	switch v.Kind() {
	case slog.KindGroup:
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = key + "."
		}
		for _, ga := range v.Group() {
			appendAttr(e, groupPrefix, ga)
		}
	case slog.KindString:
		e.Str(key, v.String())
	case slog.KindInt64:
		e.Int64(key, v.Int64())
	case slog.KindUint64:
		e.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		e.Float64(key, v.Float64())
	case slog.KindBool:
		e.Bool(key, v.Bool())
	case slog.KindDuration:
		e.Dur(key, v.Duration())
	case slog.KindTime:
		e.Time(key, v.Time())
	default:
		switch x := v.Any().(type) {
		case error:
			e.AnErr(key, x)
		case fmt.Stringer:
			e.Stringer(key, x)
		default:
			e.Interface(key, x)
		}
	}
}

func appendContext(c zerolog.Context, prefix string, a slog.Attr) zerolog.Context {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return c
	}
	key := prefix + a.Key
	v := a.Value

	switch v.Kind() {
	case slog.KindGroup:
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = key + "."
		}
		for _, ga := range v.Group() {
			c = appendContext(c, groupPrefix, ga)
		}
		return c
	case slog.KindString:
		return c.Str(key, v.String())
	case slog.KindInt64:
		return c.Int64(key, v.Int64())
	case slog.KindBool:
		return c.Bool(key, v.Bool())
	default:
		if err, ok := v.Any().(error); ok {
			return c.AnErr(key, err)
		}
		return c.Interface(key, v.Any())
	}
}
