package config

import (
	"fmt"
	"sort"

	"covidprep/pkg/contracts/domain"
)

// CountrySet is an immutable allow-list of country names
type CountrySet struct {
	names map[string]struct{}
	order []string
}

// NewCountrySet builds a set from names, keeping first-seen order for listing
func NewCountrySet(names ...string) CountrySet {
	s := CountrySet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if _, dup := s.names[n]; dup {
			continue
		}
		s.names[n] = struct{}{}
		s.order = append(s.order, n)
	}
	return s
}

// Contains reports whether name is in the set (exact, case-sensitive match)
func (s CountrySet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Names returns a copy of the member names
func (s CountrySet) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of members
func (s CountrySet) Len() int {
	return len(s.order)
}

// WeightTable maps a response measure to its stringency weight in [0,1]
type WeightTable struct {
	weights  map[string]float64
	fallback float64
}

// NewWeightTable copies weights so later changes to the argument do not leak in
func NewWeightTable(weights map[string]float64, fallback float64) WeightTable {
	w := WeightTable{weights: make(map[string]float64, len(weights)), fallback: fallback}
	for k, v := range weights {
		w.weights[k] = v
	}
	return w
}

// Weight returns the weight for measure, or the fallback for unlisted measures
func (w WeightTable) Weight(measure string) float64 {
	if v, ok := w.weights[measure]; ok {
		return v
	}
	return w.fallback
}

// Fallback returns the weight used for unlisted measures
func (w WeightTable) Fallback() float64 {
	return w.fallback
}

// Len returns the number of explicit entries
func (w WeightTable) Len() int {
	return len(w.weights)
}

// Measures returns the explicitly weighted measures, sorted
func (w WeightTable) Measures() []string {
	out := make([]string, 0, len(w.weights))
	for k := range w.weights {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CategoryTable maps a response measure to its intervention category
type CategoryTable struct {
	categories map[string]domain.InterventionCategory
}

// NewCategoryTable copies categories into an immutable table. Every value
// must belong to the closed category set.
func NewCategoryTable(categories map[string]domain.InterventionCategory) (CategoryTable, error) {
	c := CategoryTable{categories: make(map[string]domain.InterventionCategory, len(categories))}
	for k, v := range categories {
		if !v.IsValid() {
			return CategoryTable{}, fmt.Errorf("measure %q maps to unknown category %q", k, v)
		}
		c.categories[k] = v
	}
	return c, nil
}

func mustCategoryTable(categories map[string]domain.InterventionCategory) CategoryTable {
	c, err := NewCategoryTable(categories)
	if err != nil {
		panic(err)
	}
	return c
}

// Category returns the category for measure, CategoryOther when unmapped
func (c CategoryTable) Category(measure string) domain.InterventionCategory {
	if v, ok := c.categories[measure]; ok {
		return v
	}
	return domain.CategoryOther
}

// Len returns the number of mapped measures
func (c CategoryTable) Len() int {
	return len(c.categories)
}

// ReferenceData bundles the static lookup tables injected into pipelines
type ReferenceData struct {
	Countries  CountrySet
	Weights    WeightTable
	Categories CategoryTable
}

// DefaultInterventionWeight applies to measures missing from the weight table
const DefaultInterventionWeight = 0.2

// DefaultReferenceData returns fresh copies of the built-in lookup tables
func DefaultReferenceData() ReferenceData {
	return ReferenceData{
		Countries:  NewCountrySet(euEEACountries...),
		Weights:    NewWeightTable(interventionWeights, DefaultInterventionWeight),
		Categories: mustCategoryTable(interventionCategories),
	}
}

var euEEACountries = []string{
	"Austria", "Belgium", "Bulgaria", "Croatia", "Cyprus", "Czech Republic", "Denmark",
	"Estonia", "Finland", "France", "Germany", "Greece", "Hungary", "Ireland", "Italy",
	"Latvia", "Lithuania", "Luxembourg", "Malta", "Netherlands", "Poland", "Portugal",
	"Romania", "Slovakia", "Slovenia", "Spain", "Sweden", "Iceland", "Liechtenstein", "Norway",
}

var interventionWeights = map[string]float64{
	"StayHomeOrder":                               1.0,
	"StayHomeOrderPartial":                        0.5,
	"RegionalStayHomeOrder":                       0.9,
	"RegionalStayHomeOrderPartial":                0.45,
	"WorkplaceClosures":                           0.8,
	"WorkplaceClosuresPartial":                    0.4,
	"ClosureOfPublicTransport":                    0.7,
	"ClosureOfPublicTransportPartial":             0.35,
	"QuarantineForInternationalTravellers":        0.6,
	"QuarantineForInternationalTravellersPartial": 0.3,
	"MasksMandatoryAllSpaces":                     0.85,
	"MasksMandatoryAllSpacesPartial":              0.425,
	"BanOnAllEvents":                              0.75,
	"BanOnAllEventsPartial":                       0.375,
	"PrivateGatheringRestrictions":                0.6,
	"PrivateGatheringRestrictionsPartial":         0.3,
	"NonEssentialShops":                           0.55,
	"NonEssentialShopsPartial":                    0.275,
}

var interventionCategories = map[string]domain.InterventionCategory{
	"StayHomeOrder":                               domain.CategoryLockdown,
	"StayHomeOrderPartial":                        domain.CategoryLockdown,
	"RegionalStayHomeOrder":                       domain.CategoryLockdown,
	"RegionalStayHomeOrderPartial":                domain.CategoryLockdown,
	"StayHomeRiskG":                               domain.CategoryLockdown,
	"StayHomeRiskGPartial":                        domain.CategoryLockdown,
	"StayHomeGen":                                 domain.CategoryLockdown,
	"StayHomeGenPartial":                          domain.CategoryLockdown,
	"WorkplaceClosures":                           domain.CategoryWorkplace,
	"WorkplaceClosuresPartial":                    domain.CategoryWorkplace,
	"Teleworking":                                 domain.CategoryWorkplace,
	"TeleworkingPartial":                          domain.CategoryWorkplace,
	"AdaptationOfWorkplace":                       domain.CategoryWorkplace,
	"AdaptationOfWorkplacePartial":                domain.CategoryWorkplace,
	"ClosureOfPublicTransport":                    domain.CategoryTransport,
	"ClosureOfPublicTransportPartial":             domain.CategoryTransport,
	"QuarantineForInternationalTravellers":        domain.CategoryTravel,
	"QuarantineForInternationalTravellersPartial": domain.CategoryTravel,
	"MasksMandatoryAllSpaces":                     domain.CategoryMasks,
	"MasksMandatoryAllSpacesPartial":              domain.CategoryMasks,
	"MasksMandatoryClosedSpaces":                  domain.CategoryMasks,
	"MasksMandatoryClosedSpacesPartial":           domain.CategoryMasks,
	"MasksVoluntaryAllSpaces":                     domain.CategoryMasks,
	"MasksVoluntaryAllSpacesPartial":              domain.CategoryMasks,
	"MasksVoluntaryClosedSpaces":                  domain.CategoryMasks,
	"MasksVoluntaryClosedSpacesPartial":           domain.CategoryMasks,
	"BanOnAllEvents":                              domain.CategoryEvents,
	"BanOnAllEventsPartial":                       domain.CategoryEvents,
	"RestaurantsCafes":                            domain.CategoryBusiness,
	"RestaurantsCafesPartial":                     domain.CategoryBusiness,
	"HotelsOtherAccommodation":                    domain.CategoryBusiness,
	"HotelsOtherAccommodationPartial":             domain.CategoryBusiness,
	"NonEssentialShops":                           domain.CategoryBusiness,
	"NonEssentialShopsPartial":                    domain.CategoryBusiness,
	"ClosDaycare":                                 domain.CategoryEducation,
	"ClosDaycarePartial":                          domain.CategoryEducation,
	"ClosHigh":                                    domain.CategoryEducation,
	"ClosHighPartial":                             domain.CategoryEducation,
	"ClosPrim":                                    domain.CategoryEducation,
	"ClosPrimPartial":                             domain.CategoryEducation,
	"ClosSec":                                     domain.CategoryEducation,
	"ClosSecPartial":                              domain.CategoryEducation,
	"ClosPubAny":                                  domain.CategoryPublicSpace,
	"ClosPubAnyPartial":                           domain.CategoryPublicSpace,
	"EntertainmentVenues":                         domain.CategoryPublicSpace,
	"EntertainmentVenuesPartial":                  domain.CategoryPublicSpace,
	"GymsSportsCentres":                           domain.CategoryPublicSpace,
	"GymsSportsCentresPartial":                    domain.CategoryPublicSpace,
	"PlaceOfWorship":                              domain.CategoryPublicSpace,
	"PlaceOfWorshipPartial":                       domain.CategoryPublicSpace,
	"IndoorOver100":                               domain.CategoryGathering,
	"IndoorOver1000":                              domain.CategoryGathering,
	"IndoorOver50":                                domain.CategoryGathering,
	"IndoorOver500":                               domain.CategoryGathering,
	"OutdoorOver100":                              domain.CategoryGathering,
	"OutdoorOver1000":                             domain.CategoryGathering,
	"OutdoorOver50":                               domain.CategoryGathering,
	"OutdoorOver500":                              domain.CategoryGathering,
	"PrivateGatheringRestrictions":                domain.CategoryGathering,
	"PrivateGatheringRestrictionsPartial":         domain.CategoryGathering,
	"MassGather50":                                domain.CategoryGathering,
	"MassGather50Partial":                         domain.CategoryGathering,
	"MassGatherAll":                               domain.CategoryGathering,
	"MassGatherAllPartial":                        domain.CategoryGathering,
	"SocialCircle":                                domain.CategorySocialDistancing,
	"SocialCirclePartial":                         domain.CategorySocialDistancing,
}
