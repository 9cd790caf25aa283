// Package status derives health and warranty tiers for facility devices.
//
// Every banding threshold lives in this package and nowhere else. The 3D
// tint, the 2D node fill, the info panel badge and the persisted status
// strings are all computed from here, so the two views and the persistence
// service can never disagree about what "warning" means.
package status

import "time"

// Tier is a derived severity band for a device.
type Tier string

// Severity bands, ordered from best to worst. TierExpired applies to
// warranty derivation only; health never reaches it.
const (
	TierHealthy  Tier = "healthy"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
	TierExpired  Tier = "expired"
)

// Health score thresholds (inclusive lower bounds).
const (
	HealthHealthyMin = 80
	HealthWarningMin = 50
)

// Warranty thresholds in days remaining.
const (
	WarrantyCriticalDays = 30
	WarrantyWarningDays  = 90
)

// DefaultAlertWindowDays is the warranty-alert lookahead used when a caller
// does not supply one.
const DefaultAlertWindowDays = 90

const secondsPerDay = 86400

// AllTiers returns every defined tier.
func AllTiers() []Tier {
	return []Tier{TierHealthy, TierWarning, TierCritical, TierExpired}
}

// Valid reports whether the tier is one of the defined bands.
func (t Tier) Valid() bool {
	switch t {
	case TierHealthy, TierWarning, TierCritical, TierExpired:
		return true
	}
	return false
}

// Label returns the tier's persisted form ("Healthy", "Warning", ...), the
// spelling stored in device records and shown on the info panel.
func (t Tier) Label() string {
	switch t {
	case TierHealthy:
		return "Healthy"
	case TierWarning:
		return "Warning"
	case TierCritical:
		return "Critical"
	case TierExpired:
		return "Expired"
	}
	return "Unknown"
}

// Color returns the tier's fixed display token, shared by the 3D material
// tint and the 2D node fill.
func (t Tier) Color() string {
	switch t {
	case TierHealthy:
		return "#2ecc71"
	case TierWarning:
		return "#f1c40f"
	case TierCritical:
		return "#e74c3c"
	case TierExpired:
		return "#95a5a6"
	}
	return "#7f8c8d"
}

// ClampScore bounds a health score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// HealthTier bands a health score: >=80 healthy, 50-79 warning, <50
// critical. Scores outside [0,100] are clamped first.
func HealthTier(score int) Tier {
	score = ClampScore(score)
	switch {
	case score >= HealthHealthyMin:
		return TierHealthy
	case score >= HealthWarningMin:
		return TierWarning
	default:
		return TierCritical
	}
}

// DaysRemaining returns the whole days until expiry, rounding toward
// negative infinity so that an expiry even one second in the past counts
// as a full day overdue.
func DaysRemaining(expiry, now time.Time) int {
	secs := int64(expiry.Sub(now) / time.Second)
	days := secs / secondsPerDay
	if secs%secondsPerDay != 0 && secs < 0 {
		days--
	}
	return int(days)
}

// WarrantyTier bands days remaining: negative is expired, under 30 days is
// critical, under 90 days is warning, anything further out is healthy.
func WarrantyTier(daysRemaining int) Tier {
	switch {
	case daysRemaining < 0:
		return TierExpired
	case daysRemaining < WarrantyCriticalDays:
		return TierCritical
	case daysRemaining < WarrantyWarningDays:
		return TierWarning
	default:
		return TierHealthy
	}
}

// WarrantyTierAt derives the warranty tier for an expiry date at a given
// instant.
func WarrantyTierAt(expiry, now time.Time) Tier {
	return WarrantyTier(DaysRemaining(expiry, now))
}

// AlertStatus is the wire vocabulary of the warranty-alerts endpoint:
// "expired", "critical" (under 30 days) or "expiring_soon". Callers filter
// to an alert window first; this only names the band.
func AlertStatus(daysRemaining int) string {
	switch {
	case daysRemaining < 0:
		return "expired"
	case daysRemaining < WarrantyCriticalDays:
		return "critical"
	default:
		return "expiring_soon"
	}
}
