package v1

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loginsTotal tracks login attempts by outcome.
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessiongate_logins_total",
			Help: "Login attempts by outcome (success, empty_identifier, unknown_account, storage_error)",
		},
		[]string{"outcome"},
	)

	// supersededSessionsTotal counts sessions displaced by a newer login.
	supersededSessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessiongate_superseded_sessions_total",
			Help: "Sessions invalidated because the account logged in elsewhere",
		},
	)

	// staleRejectionsTotal counts guard rejections of stale sessions.
	staleRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessiongate_stale_rejections_total",
			Help: "Requests rejected because the presented session is no longer the bound one",
		},
	)
)
