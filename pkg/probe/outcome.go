package probe

import (
	"fmt"
	"time"
)

// Kind is the classification of one probe step.
type Kind int

const (
	// KindSuccess: the step completed and the response was the expected one.
	KindSuccess Kind = iota
	// KindIndeterminate: a session was established but no usable response came back.
	KindIndeterminate
	// KindFailure: the step failed, or the ensemble answered that it is unhealthy.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindIndeterminate:
		return "indeterminate"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// NoError is the error marker reported for successful steps.
const NoError = "none"

// Outcome is the tri-state result of a single probe step. Elapsed is set for
// Success, and for Failure only when the ensemble did respond. Err is nil
// exactly when Kind is KindSuccess.
type Outcome struct {
	Kind    Kind
	Elapsed time.Duration
	Err     error
}

func Success(elapsed time.Duration) Outcome { return Outcome{Kind: KindSuccess, Elapsed: elapsed} }

func Indeterminate(elapsed time.Duration, err error) Outcome {
	return Outcome{Kind: KindIndeterminate, Elapsed: elapsed, Err: err}
}

func Failure(err error) Outcome { return Outcome{Kind: KindFailure, Err: err} }

// FailureAfter is a Failure for which a response was received after elapsed.
func FailureAfter(elapsed time.Duration, err error) Outcome {
	return Outcome{Kind: KindFailure, Elapsed: elapsed, Err: err}
}

func (o Outcome) OK() bool { return o.Kind == KindSuccess }

// Detail is the error text, or NoError for a success.
func (o Outcome) Detail() string {
	if o.Err == nil {
		return NoError
	}
	return o.Err.Error()
}

// ReportedElapsed is the latency exposed to reporters: failures always report zero.
func (o Outcome) ReportedElapsed() time.Duration {
	if o.Kind == KindFailure {
		return 0
	}
	return o.Elapsed
}

// Millis is ReportedElapsed in fractional milliseconds.
func (o Outcome) Millis() float64 {
	return float64(o.ReportedElapsed()) / float64(time.Millisecond)
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s (%.2f ms, error: %s)", o.Kind, o.Millis(), o.Detail())
}
