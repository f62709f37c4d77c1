package merge

import (
	"errors"
	"fmt"
)

// Sentinel errors for the merge engine's two failure kinds. Callers
// can test with errors.Is; the wrap* helpers below attach positional
// context the way vcdiff.go's errOutOfBounds/errInvalidValue do for
// the wire decoder.
var (
	// ErrInvalidCopyOffset means an instruction referenced bytes outside
	// what was available to it: a source COPY beyond the length of the
	// state it was resolved against, a COPY beyond the source or the
	// target emitted so far during Materialize, or a RUN/ADD needing
	// more window data than AppendWindow had left.
	ErrInvalidCopyOffset = errors.New("invalid copy offset in merge")

	// ErrMergeInternal means an internal consistency check failed that
	// should be unreachable if upstream invariants hold.
	ErrMergeInternal = errors.New("internal error in merge")
)

func wrapInvalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidCopyOffset)
}

func wrapInternal(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrMergeInternal)
}
