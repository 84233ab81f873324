package agent

import (
	"context"

	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
)

// Sensor is a subscribable lazy sequence of values feeding back into
// state (spec.md §3, §4.6): each emitted value is applied to the
// agent's owned state at Path as an update operation.
type Sensor interface {
	// Path reports the location this Sensor's values are bound to.
	Path() path.Path
	// Subscribe starts the sensor; it must close the returned channel
	// when ctx is cancelled or the underlying source is exhausted.
	Subscribe(ctx context.Context) (<-chan state.Value, error)
}
