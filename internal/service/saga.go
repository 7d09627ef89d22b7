package service

import (
	"context"

	"go.uber.org/zap"
)

// saga is a stack of compensating actions for a multi-step operation over
// non-transactional stores. Each completed step pushes its undo; on a later
// failure the undos run in reverse order. A failing undo is logged and does
// not stop the remaining compensation, so the original error reaches the
// caller unmasked.
type saga struct {
	log   *zap.Logger
	names []string
	undo  []func(context.Context) error
}

func newSaga(log *zap.Logger) *saga {
	return &saga{log: log}
}

// push records an undo action for a completed step.
func (s *saga) push(name string, fn func(context.Context) error) {
	s.names = append(s.names, name)
	s.undo = append(s.undo, fn)
}

// compensate runs all recorded undo actions in reverse order.
func (s *saga) compensate(ctx context.Context) {
	for i := len(s.undo) - 1; i >= 0; i-- {
		if err := s.undo[i](ctx); err != nil {
			s.log.Error("compensation step failed",
				zap.String("step", s.names[i]),
				zap.Error(err),
			)
		}
	}
}
