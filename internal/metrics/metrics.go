// Package metrics holds the Prometheus collectors for authentication and
// user-management events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Login results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Logins counts login attempts by result.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "useradmin_logins_total",
		Help: "Total number of login attempts by result",
	},
	[]string{"result"},
)

// SessionsCreated counts issued sessions.
var SessionsCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "useradmin_sessions_created_total",
		Help: "Total number of sessions issued",
	},
)

// SessionsReaped counts expired sessions removed, by how they were found.
var SessionsReaped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "useradmin_sessions_reaped_total",
		Help: "Total number of expired sessions deleted",
	},
	[]string{"via"},
)

// UserOperations counts user-service mutations by operation and result.
var UserOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "useradmin_user_operations_total",
		Help: "Total number of user create/update/delete operations",
	},
	[]string{"operation", "result"},
)

// RemoteLoads counts remote manifest fetches by result.
var RemoteLoads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "useradmin_remote_manifest_loads_total",
		Help: "Total number of remote manifest fetches by result",
	},
	[]string{"result"},
)

// Register registers every collector with reg.
// Panics if registration fails (following prometheus convention).
func Register(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(SessionsCreated)
	reg.MustRegister(SessionsReaped)
	reg.MustRegister(UserOperations)
	reg.MustRegister(RemoteLoads)
}

// RecordLogin increments the login counter.
func RecordLogin(result string) {
	Logins.WithLabelValues(result).Inc()
}

// RecordSessionCreated increments the issued-session counter.
func RecordSessionCreated() {
	SessionsCreated.Inc()
}

// RecordSessionsReaped adds n to the reaped counter. via is "read" for lazy
// expiry and "prune" for the maintenance command.
func RecordSessionsReaped(via string, n int64) {
	if n > 0 {
		SessionsReaped.WithLabelValues(via).Add(float64(n))
	}
}

// RecordUserOperation increments the user operation counter.
func RecordUserOperation(operation, result string) {
	UserOperations.WithLabelValues(operation, result).Inc()
}

// RecordRemoteLoad increments the remote manifest counter.
func RecordRemoteLoad(result string) {
	RemoteLoads.WithLabelValues(result).Inc()
}
