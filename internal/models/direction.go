package models

// Direction values used across triggers, research results and signals.
const (
	DirectionYes     = "YES"
	DirectionNo      = "NO"
	DirectionNeutral = "NEUTRAL"
	DirectionHold    = "HOLD"
)

// IsTradable reports whether a direction can back an actionable signal.
func IsTradable(direction string) bool {
	return direction == DirectionYes || direction == DirectionNo
}
