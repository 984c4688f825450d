package purge

import "log/slog"

// Notifier surfaces run outcomes to the user. Cancellation is informational,
// never an error.
type Notifier interface {
	RunCompleted(processed int)
	RunCancelled(processed int)
	RunFailed(message string)
	AuthRequired()
}

// LogNotifier reports outcomes through the structured log.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) RunCompleted(processed int) {
	n.Log.Info("deletion run completed", "processed", processed)
}

func (n LogNotifier) RunCancelled(processed int) {
	n.Log.Info("deletion run stopped", "processed", processed)
}

func (n LogNotifier) RunFailed(message string) {
	n.Log.Error("deletion run failed", "error", message)
}

func (n LogNotifier) AuthRequired() {
	n.Log.Warn("re-authentication required before another run can proceed")
}

var _ Notifier = LogNotifier{}
