package vb

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig        = errors.New("vb: invalid configuration")
	ErrNumericalInstability = errors.New("vb: numerical instability")
)

// InstabilityError reports a sweep whose invalid documents exceeded the
// configured fraction, documents that stayed invalid for too many
// consecutive epochs, or a published vocabulary holding NaN cells.
type InstabilityError struct {
	Epoch       int
	InvalidDocs int
	Documents   int
	NaNCells    int

	// Persistent lists the documents whose invalid streak ran out.
	Persistent []int
}

func (e *InstabilityError) Error() string {
	if e.NaNCells > 0 {
		return fmt.Sprintf("vb: numerical instability in epoch %d: vocabulary has %d NaN cells",
			e.Epoch, e.NaNCells)
	}
	if len(e.Persistent) > 0 {
		return fmt.Sprintf("vb: numerical instability in epoch %d: documents %v invalid in every recent epoch",
			e.Epoch, e.Persistent)
	}
	return fmt.Sprintf("vb: numerical instability in epoch %d: %d of %d documents invalid",
		e.Epoch, e.InvalidDocs, e.Documents)
}

func (e *InstabilityError) Unwrap() error { return ErrNumericalInstability }

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...)
}
