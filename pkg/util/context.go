package util

import (
	"context"
)

type key string

const (
	runIDKey      = key("x-run-id")
	instrumentKey = key("instrument")
	passKey       = key("pass")
)

// WithRunID returns a context carrying a replay run id.
// It will generate a new run id if the provided id is empty.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return context.WithValue(ctx, runIDKey, generate())
	}

	return context.WithValue(ctx, runIDKey, id)
}

// GetRunID returns the run id from context.
// Returns empty string if not present.
func GetRunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithInstrument returns a context carrying the instrument label.
func WithInstrument(ctx context.Context, instrument string) context.Context {
	return context.WithValue(ctx, instrumentKey, instrument)
}

// GetInstrument returns the instrument label from context.
// Returns empty string if not present.
func GetInstrument(ctx context.Context) string {
	instrument, _ := ctx.Value(instrumentKey).(string)
	return instrument
}

// WithPass returns a context carrying the replay pass number.
func WithPass(ctx context.Context, pass int) context.Context {
	return context.WithValue(ctx, passKey, pass)
}

// GetPass returns the replay pass number from context.
// Returns 0 if not present.
func GetPass(ctx context.Context) int {
	pass, _ := ctx.Value(passKey).(int)
	return pass
}
