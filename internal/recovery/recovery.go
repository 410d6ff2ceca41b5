// Package recovery runs startup recovery for LifeTracker's background delivery.
// Components register their own recovery logic; the manager runs each once before
// the server starts taking traffic.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
)

// Recoverable defines the interface for components that can recover their state
type Recoverable interface {
	// RecoverState is called during application startup to restore component state
	RecoverState(ctx context.Context) error
}

// RecoverFunc adapts a plain function to Recoverable.
type RecoverFunc func(ctx context.Context) error

// RecoverState calls f.
func (f RecoverFunc) RecoverState(ctx context.Context) error {
	return f(ctx)
}

type component struct {
	name string
	r    Recoverable
}

// RecoveryManager orchestrates recovery of all registered components
type RecoveryManager struct {
	components []component
}

// NewRecoveryManager creates a new recovery manager
func NewRecoveryManager() *RecoveryManager {
	return &RecoveryManager{}
}

// RegisterRecoverable adds a component that can be recovered. Components run in registration order.
func (rm *RecoveryManager) RegisterRecoverable(name string, r Recoverable) {
	rm.components = append(rm.components, component{name: name, r: r})
}

// Len returns the number of registered components.
func (rm *RecoveryManager) Len() int {
	return len(rm.components)
}

// RecoverAll performs recovery of all registered components. A failing component
// does not stop the others; the returned error summarizes every failure.
func (rm *RecoveryManager) RecoverAll(ctx context.Context) error {
	slog.Info("RecoveryManager.RecoverAll: starting recovery", "components", len(rm.components))

	recoveredCount := 0
	errorCount := 0
	for _, c := range rm.components {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.r.RecoverState(ctx); err != nil {
			slog.Error("RecoveryManager.RecoverAll: component recovery failed", "component", c.name, "error", err)
			errorCount++
			continue
		}
		recoveredCount++
	}

	slog.Info("RecoveryManager.RecoverAll: recovery completed", "recovered", recoveredCount, "errors", errorCount)
	if errorCount > 0 {
		return fmt.Errorf("recovery completed with %d errors out of %d components", errorCount, len(rm.components))
	}
	return nil
}
