package routing

import "fmt"

// FormatDistance renders a distance in meters as a human-readable string:
// one-decimal kilometers at or above 1000 m ("1.2 km"), whole meters below
// ("450 m").
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.1f km", meters/1000)
	}
	return fmt.Sprintf("%.0f m", meters)
}
