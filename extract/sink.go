package extract

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"gitlab.com/archkit/unpack/archive"
)

// EntryEvent is emitted to the progress sink after each entry is processed.
type EntryEvent struct {
	Name         string
	Outcome      Outcome
	BytesWritten int64
}

// Sink receives per-entry progress events. Events are delivered from the
// extraction goroutine, one at a time, in processing order.
type Sink interface {
	Event(ev EntryEvent)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev EntryEvent)

func (f SinkFunc) Event(ev EntryEvent) {
	f(ev)
}

// ErrorRecord is handed to the error log collaborator for each failure.
// Entry is empty for whole-archive conditions.
type ErrorRecord struct {
	Time    time.Time
	Entry   string
	Kind    string
	Message string
}

// ErrorLogger receives structured error records. The engine does not choose
// how or where records are stored.
type ErrorLogger interface {
	Error(rec ErrorRecord)
}

// ErrorLoggerFunc adapts a function to the ErrorLogger interface.
type ErrorLoggerFunc func(rec ErrorRecord)

func (f ErrorLoggerFunc) Error(rec ErrorRecord) {
	f(rec)
}

func newLogSink(log *logrus.Entry) Sink {
	return SinkFunc(func(ev EntryEvent) {
		log.WithFields(logrus.Fields{
			"entry":   ev.Name,
			"outcome": ev.Outcome,
			"bytes":   ev.BytesWritten,
		}).Debugln("Processed archive entry")
	})
}

func newLogErrorLogger(log *logrus.Entry) ErrorLogger {
	return ErrorLoggerFunc(func(rec ErrorRecord) {
		log.WithFields(logrus.Fields{
			"entry": rec.Entry,
			"kind":  rec.Kind,
		}).Warningln(rec.Message)
	})
}

func newErrorRecord(entry string, err error) ErrorRecord {
	return ErrorRecord{
		Time:    time.Now(),
		Entry:   entry,
		Kind:    errKind(err),
		Message: err.Error(),
	}
}

func errKind(err error) string {
	switch {
	case errors.Is(err, archive.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, archive.ErrPasswordRequired):
		return "password_required"
	case errors.Is(err, archive.ErrInvalidArchive):
		return "invalid_archive"
	case errors.Is(err, archive.ErrChecksum):
		return "checksum"
	case errors.Is(err, ErrPathTraversal):
		return "path_traversal"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}

	return "entry_io"
}
