package domain

import (
	"math"
	"time"
)

// WaveLabel is the coarse pandemic phase a weekly observation belongs to
type WaveLabel string

const (
	WaveFirst         WaveLabel = "First Wave"
	WaveSecond        WaveLabel = "Second Wave"
	WavePostVaccine   WaveLabel = "Post-Vaccine Era"
	WaveUncategorized WaveLabel = "Uncategorized"
)

var (
	// SecondWaveStart is the first day labelled WaveSecond
	SecondWaveStart = time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)

	// PostVaccineStart is the first day labelled WavePostVaccine
	PostVaccineStart = time.Date(2021, time.September, 1, 0, 0, 0, 0, time.UTC)
)

// WaveForDate assigns the wave label for a calendar date.
// A zero date has no wave and is reported as WaveUncategorized.
func WaveForDate(date time.Time) WaveLabel {
	if date.IsZero() {
		return WaveUncategorized
	}
	switch {
	case date.Before(SecondWaveStart):
		return WaveFirst
	case date.Before(PostVaccineStart):
		return WaveSecond
	default:
		return WavePostVaccine
	}
}

// StringencyCategory buckets a rescaled stringency score
type StringencyCategory string

const (
	StringencyLow    StringencyCategory = "Low"
	StringencyMedium StringencyCategory = "Medium"
	StringencyHigh   StringencyCategory = "High"
)

// Stringency thresholds on the 0-100 scale
const (
	StringencyHighThreshold   = 75.0
	StringencyMediumThreshold = 50.0
)

// StringencyCategoryForScore maps a 0-100 score to its category
func StringencyCategoryForScore(score float64) StringencyCategory {
	switch {
	case score >= StringencyHighThreshold:
		return StringencyHigh
	case score >= StringencyMediumThreshold:
		return StringencyMedium
	default:
		return StringencyLow
	}
}

// InterventionCategory groups response measures into broad families
type InterventionCategory string

const (
	CategoryLockdown         InterventionCategory = "Lockdown"
	CategoryWorkplace        InterventionCategory = "Workplace"
	CategoryTransport        InterventionCategory = "Transport"
	CategoryTravel           InterventionCategory = "Travel"
	CategoryMasks            InterventionCategory = "Masks"
	CategoryEvents           InterventionCategory = "Events"
	CategoryBusiness         InterventionCategory = "Business"
	CategoryEducation        InterventionCategory = "Education"
	CategoryPublicSpace      InterventionCategory = "Public Space"
	CategoryGathering        InterventionCategory = "Gathering"
	CategorySocialDistancing InterventionCategory = "Social Distancing"
	CategoryOther            InterventionCategory = "Other"
)

// InterventionCategories lists the closed set of categories in display order
func InterventionCategories() []InterventionCategory {
	return []InterventionCategory{
		CategoryLockdown, CategoryWorkplace, CategoryTransport, CategoryTravel,
		CategoryMasks, CategoryEvents, CategoryBusiness, CategoryEducation,
		CategoryPublicSpace, CategoryGathering, CategorySocialDistancing, CategoryOther,
	}
}

// IsValid reports whether c belongs to the closed category set
func (c InterventionCategory) IsValid() bool {
	for _, known := range InterventionCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// VaccinationMilestone buckets a cumulative vaccination rate (percent of population)
type VaccinationMilestone string

const (
	MilestoneUnder25 VaccinationMilestone = "less than 25% Vaccinated"
	MilestoneOver25  VaccinationMilestone = "25%+ Vaccinated"
	MilestoneOver50  VaccinationMilestone = "50%+ Vaccinated"
	MilestoneOver75  VaccinationMilestone = "75%+ Vaccinated"
)

// MilestoneForRate maps a cumulative vaccination rate to its milestone.
// NaN never satisfies a threshold and lands in MilestoneUnder25.
func MilestoneForRate(rate float64) VaccinationMilestone {
	if math.IsNaN(rate) {
		return MilestoneUnder25
	}
	switch {
	case rate >= 75:
		return MilestoneOver75
	case rate >= 50:
		return MilestoneOver50
	case rate >= 25:
		return MilestoneOver25
	default:
		return MilestoneUnder25
	}
}
