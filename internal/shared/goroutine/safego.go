// Package goroutine launches background work with panic containment.
package goroutine

import (
	"runtime/debug"

	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// SafeGo runs fn on a new goroutine and turns a panic into an error log with
// the stack attached. Used for post-commit fan-out (cache invalidation,
// reconciliation) where a crash must not take the server down.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("background task panicked",
					"task", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
