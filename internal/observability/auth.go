package observability

import "github.com/prometheus/client_golang/prometheus"

// Login/registration outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeDuplicate   = "duplicate"
	OutcomeLocked      = "locked"
	OutcomeRateLimited = "rate_limited"
)

// AuthMetrics counts authentication flow outcomes. All methods are nil-safe
// so callers can run without a registry in tests.
type AuthMetrics struct {
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	lockouts      prometheus.Counter
	rateLimited   prometheus.Counter
}

// NewAuthMetrics registers the auth counters on the given registerer.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "askora_auth_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "askora_auth_registrations_total",
		Help: "Registration attempts by outcome.",
	}, []string{"outcome"})
	lockouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "askora_auth_lockouts_total",
		Help: "Login attempts rejected by the lockout tracker.",
	})
	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "askora_auth_ratelimited_total",
		Help: "Credential requests rejected by the rate limiter.",
	})
	reg.MustRegister(logins, registrations, lockouts, rateLimited)
	return &AuthMetrics{
		logins:        logins,
		registrations: registrations,
		lockouts:      lockouts,
		rateLimited:   rateLimited,
	}
}

// Login counts one login attempt with the given outcome.
func (m *AuthMetrics) Login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

// Registration counts one registration attempt with the given outcome.
func (m *AuthMetrics) Registration(outcome string) {
	if m != nil {
		m.registrations.WithLabelValues(outcome).Inc()
	}
}

// Lockout counts one lockout rejection.
func (m *AuthMetrics) Lockout() {
	if m != nil {
		m.lockouts.Inc()
	}
}

// RateLimited counts one rate limiter rejection.
func (m *AuthMetrics) RateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}
