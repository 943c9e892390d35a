package algo

import (
	"errors"
	"time"
)

const (
	// 2-opt accepts a move only when it improves the tour by more than EPS
	EPS = 1e-9

	// the refinement deadline is checked every DEADLINE_CHECK_STEP candidate moves
	DEADLINE_CHECK_STEP = 2048

	// default refinement budget when the caller sets none
	DEFAULT_TIME_LIMIT = 10 * time.Second

	// default node cap, the closure holds 12 bytes per node pair
	DEFAULT_MAX_NODES = 5000
)

var (
	// input errors
	ErrEmptyGraph        = errors.New("graph has no nodes")
	ErrDisconnectedGraph = errors.New("graph is not connected")
	ErrDegenerateTour    = errors.New("tour collapses to a single point")
	ErrCoincidentPoints  = errors.New("coincident consecutive points have no heading")
	ErrGraphTooLarge     = errors.New("graph has too many nodes for a tour")

	// resource errors
	ErrTimeoutExceeded = errors.New("tour builder timeout exceeded")
)
