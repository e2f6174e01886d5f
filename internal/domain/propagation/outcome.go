package propagation

import (
	"fmt"
)

// OutcomeKind classifies how a delivery ended
type OutcomeKind string

const (
	OutcomeSuccess   OutcomeKind = "success"
	OutcomeRetryable OutcomeKind = "retryable"
	OutcomeFatal     OutcomeKind = "fatal"
)

// Outcome is returned by a job handler to the queue runner, which owns the
// attempt count and the backoff policy.
type Outcome struct {
	Kind   OutcomeKind
	Result Result
	Err    error
}

// Success ends the job
func Success(result Result) Outcome {
	return Outcome{Kind: OutcomeSuccess, Result: result}
}

// RetryableFailure asks the runner to retry with backoff while attempts remain
func RetryableFailure(err error) Outcome {
	return Outcome{Kind: OutcomeRetryable, Err: err}
}

// FatalFailure marks the job dead without further attempts
func FatalFailure(err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Err: err}
}

func (o Outcome) IsSuccess() bool {
	return o.Kind == OutcomeSuccess
}

// Error describes the failure, empty on success
func (o Outcome) Error() string {
	if o.Err == nil {
		if o.Kind == OutcomeSuccess {
			return ""
		}
		return fmt.Sprintf("%s failure", o.Kind)
	}
	return o.Err.Error()
}
