package handlers

import (
	"io"
	"log/slog"
	"time"
)

var testNow = time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
