package ingest

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/skinmap/pkg/errors"
)

// RunLogColumns is the header of a run log.
var RunLogColumns = []string{"table", "primary_key", "status", "error", "timestamp"}

// RunLog writes one CSV row per record.
type RunLog struct {
	w      *csv.Writer
	header bool
	now    func() utc.Time
}

// NewRunLog creates a run log on w.
func NewRunLog(w io.Writer) *RunLog {
	return &RunLog{w: csv.NewWriter(w), now: utc.Now}
}

// Write appends the row of one outcome. The primary key is the product ID,
// or the identity key when no product was resolved.
func (l *RunLog) Write(o Outcome) error {
	if !l.header {
		if err := l.w.Write(RunLogColumns); err != nil {
			return errors.WrapIO("write", "run log", err)
		}
		l.header = true
	}
	key := o.IdentityKey()
	if o.ProductID != uuid.Nil {
		key = o.ProductID.String()
	}
	msg := ""
	if o.Err != nil {
		msg = o.Err.Error()
	}
	row := []string{"products", key, o.State.String(), msg, l.now().Format(time.RFC3339)}
	if err := l.w.Write(row); err != nil {
		return errors.WrapIO("write", "run log", err)
	}
	l.w.Flush()
	return errors.WrapIO("write", "run log", l.w.Error())
}
