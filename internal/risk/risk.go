// Package risk implements the Cosmic Risk Index (CRI), the 0-100 composite
// threat score for a single close approach. The scorer is pure: no I/O, no
// shared state, safe to call from any goroutine.
package risk

import (
	"math"
	"time"
)

// Defaults substituted when the feed did not provide a usable value, so a
// partially-populated approach still yields a sane mid-range score.
const (
	defaultDiameterKm     = 0.05      // minimum detectable asteroid
	defaultVelocityKmh    = 15000.0   // typical relative velocity
	defaultMissDistanceKm = 1000000.0 // ~2.6x the Earth-Moon distance
)

// Component weights of the final score.
const (
	weightDiameter = 0.35
	weightVelocity = 0.25
	weightDistance = 0.25
	weightHazard   = 0.15

	hazardBonusPoints = 15.0
)

// CRIComponents is the per-factor breakdown of one CRI calculation. All
// values are rounded to two decimal places.
type CRIComponents struct {
	DiameterScore float64 `json:"diameter_score"`
	VelocityScore float64 `json:"velocity_score"`
	DistanceScore float64 `json:"distance_score"`
	HazardBonus   float64 `json:"hazard_bonus"`
	FinalCRI      float64 `json:"final_cri"`
}

// Sigmoid maps any input to (0,1), saturating to 0 or 1 for extreme
// inputs instead of overflowing.
func Sigmoid(x float64) float64 {
	if x > 700 {
		return 1.0
	}
	if x < -700 {
		return 0.0
	}
	return 1 / (1 + math.Exp(-x))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateCRI computes the Cosmic Risk Index for one approach. Nil or
// zero-valued inputs take the package defaults. The result and every
// component are deterministic for identical inputs.
func CalculateCRI(diameterKm, velocityKmh, missDistanceKm *float64, isHazardous bool) (float64, CRIComponents) {
	diameter := defaultDiameterKm
	if diameterKm != nil && *diameterKm != 0 {
		diameter = *diameterKm
	}
	velocity := defaultVelocityKmh
	if velocityKmh != nil && *velocityKmh != 0 {
		velocity = *velocityKmh
	}
	missDistance := defaultMissDistanceKm
	if missDistanceKm != nil && *missDistanceKm != 0 {
		missDistance = *missDistanceKm
	}

	// Size: larger bodies carry more impact energy.
	diameterScore := Sigmoid(diameter*100/10) * 100

	// Speed, normalized against a 30000 km/h reference.
	velocityScore := Sigmoid(velocity/30000*100/10) * 100

	// Proximity on a log scale: distance matters most at close range.
	distanceFactor := 1 / (math.Log(missDistance+1) + 1)
	distanceScore := Sigmoid(distanceFactor*100) * 100

	hazardBonus := 0.0
	if isHazardous {
		hazardBonus = hazardBonusPoints
	}

	final := diameterScore*weightDiameter +
		velocityScore*weightVelocity +
		distanceScore*weightDistance +
		hazardBonus*weightHazard
	final = math.Max(0, math.Min(100, final))
	final = round2(final)

	components := CRIComponents{
		DiameterScore: round2(diameterScore),
		VelocityScore: round2(velocityScore),
		DistanceScore: round2(distanceScore),
		HazardBonus:   round2(hazardBonus),
		FinalCRI:      final,
	}

	return final, components
}

// Level describes one classification band of the CRI scale.
type Level struct {
	Level          string `json:"level"`
	Color          string `json:"color"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// GetRiskLevel maps a CRI score to its classification band. Lower bounds
// are inclusive: exactly 21 is YELLOW, 81 is CRITICAL.
func GetRiskLevel(cri float64) Level {
	switch {
	case cri >= 81:
		return Level{
			Level:          "CRITICAL",
			Color:          "#FF1744",
			Description:    "Rare celestial event - Extremely close approach",
			Recommendation: "High scientific interest - Monitor in real-time",
		}
	case cri >= 61:
		return Level{
			Level:          "RED",
			Color:          "#FF6B35",
			Description:    "Very close approach - Significant risk",
			Recommendation: "Add to watchlist for continuous monitoring",
		}
	case cri >= 41:
		return Level{
			Level:          "ORANGE",
			Color:          "#FFA500",
			Description:    "High interest - Moderately close approach",
			Recommendation: "Worth tracking for research",
		}
	case cri >= 21:
		return Level{
			Level:          "YELLOW",
			Color:          "#FFD700",
			Description:    "Monitor closely - Notable asteroid",
			Recommendation: "Interesting for astronomy enthusiasts",
		}
	default:
		return Level{
			Level:          "GREEN",
			Color:          "#00D084",
			Description:    "Safe to observe - Low risk approach",
			Recommendation: "Routine asteroid - Safe observation",
		}
	}
}

// DaysUntilApproach returns whole days until the approach, clamped at 0
// for approaches in the past.
func DaysUntilApproach(approachAt time.Time) int {
	days := int(approachAt.Sub(clock.Now()).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// IsNext72hThreat reports whether an approach falls within the next 72
// hours with a CRI of at least 40. Evaluated fresh on every call; the
// result is never cached.
func IsNext72hThreat(approachAt time.Time, cri float64) bool {
	until := approachAt.Sub(clock.Now())
	if until < 0 {
		until = 0
	}
	return until <= 72*time.Hour && cri >= 40
}
