package conflict

import (
	"context"
)

// Optimistic is an explicit three-phase optimistic update: apply a
// tentative local state, attempt the authoritative write, and on
// failure restore via the caller-supplied rollback. Keeping the phases
// as plain funcs makes the rollback path testable on its own.
type Optimistic struct {
	// Apply installs the tentative state. Runs before the write.
	Apply func()

	// Write performs the authoritative write.
	Write func(ctx context.Context) error

	// Rollback restores the pre-tentative state. Runs only when Write
	// fails.
	Rollback func()
}

// Run executes the three phases in order. The error from Write is
// returned unchanged so its classification survives.
func (o Optimistic) Run(ctx context.Context) error {
	if o.Apply != nil {
		o.Apply()
	}
	if err := o.Write(ctx); err != nil {
		if o.Rollback != nil {
			o.Rollback()
		}
		return err
	}
	return nil
}
