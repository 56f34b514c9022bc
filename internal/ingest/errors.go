package ingest

import "errors"

// Stage identifies where in the pipeline a message failed.
type Stage string

const (
	StageParse    Stage = "parse"
	StageDownload Stage = "download"
	StageExtract  Stage = "extract"
	StageLookup   Stage = "lookup"
	StageIndex    Stage = "index"
	StageFinalize Stage = "finalize"
)

// Class splits failures into retryable and permanent.
type Class string

const (
	// ClassTransient failures may succeed on redelivery.
	ClassTransient Class = "transient"
	// ClassTerminal failures will fail the same way every time.
	ClassTerminal Class = "terminal"
)

// StageError carries the failing stage and its failure class so the consumer
// can decide the message's fate.
type StageError struct {
	Stage Stage
	Class Class
	Err   error
}

func (e *StageError) Error() string {
	msg := string(e.Stage) + " stage failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable stage failure.
func Transient(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Class: ClassTransient, Err: err}
}

// Terminal wraps err as a permanent stage failure.
func Terminal(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Class: ClassTerminal, Err: err}
}

// Classify extracts the stage and class from a pipeline error. Unclassified
// errors are treated as transient so an unexpected failure is retried rather
// than silently dropped.
func Classify(err error) (Stage, Class) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, stageErr.Class
	}
	return "", ClassTransient
}
