package planner

import (
	"errors"
	"fmt"

	"git.fiblab.net/sim/patrol/planner/algo"
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageSource   Stage = "source"
	StageTour     Stage = "tour"
	StageSimplify Stage = "simplify"
	StageBearing  Stage = "bearing"
	StageCompose  Stage = "compose"
	StageRender   Stage = "render"
)

var (
	ErrInvalidGraph = errors.New("invalid road graph")
	// a stage broke an invariant of its successor
	ErrInternal = errors.New("internal pipeline defect")

	ErrEmptyGraph        = algo.ErrEmptyGraph
	ErrDisconnectedGraph = algo.ErrDisconnectedGraph
	ErrDegenerateTour    = algo.ErrDegenerateTour
	ErrCoincidentPoints  = algo.ErrCoincidentPoints
	ErrTimeoutExceeded   = algo.ErrTimeoutExceeded
	ErrGraphTooLarge     = algo.ErrGraphTooLarge
)

type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Wrap tags err with stage unless it already carries one.
func Wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded in err.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
