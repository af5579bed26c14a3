package users

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "natours_signups_total",
		Help: "Total number of successful signups.",
	})

	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "natours_login_attempts_total",
			Help: "Total number of login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	passwordChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "natours_password_changes_total",
			Help: "Total number of password changes by flow.",
		},
		[]string{"flow"},
	)
)
