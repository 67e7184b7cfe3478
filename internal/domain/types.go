package domain

import "strings"

// HealthProfile selects which health-risk rules a prompt carries. It is an
// open label: unknown values are passed through to the model unchanged.
type HealthProfile string

const (
	ProfileDiabetic       HealthProfile = "Diabetic"
	ProfileVegan          HealthProfile = "Vegan"
	ProfileHypertension   HealthProfile = "Hypertension"
	ProfileGymAthlete     HealthProfile = "Gym/Athlete"
	ProfileGeneralHealthy HealthProfile = "General Healthy"
)

// DefaultProfile is used when a request omits the profile.
const DefaultProfile = ProfileGeneralHealthy

// KnownProfiles lists the profiles the prompt rules mention by name.
var KnownProfiles = []HealthProfile{
	ProfileDiabetic,
	ProfileVegan,
	ProfileHypertension,
	ProfileGymAthlete,
	ProfileGeneralHealthy,
}

// ParseProfile trims s and falls back to DefaultProfile when it is blank.
func ParseProfile(s string) HealthProfile {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultProfile
	}
	return HealthProfile(s)
}

func (p HealthProfile) String() string { return string(p) }

// Known reports whether p is one of KnownProfiles.
func (p HealthProfile) Known() bool {
	for _, k := range KnownProfiles {
		if p == k {
			return true
		}
	}
	return false
}

// Overall risk values the prompt asks the model to use.
const (
	RiskSafe    = "Safe"
	RiskCaution = "Caution"
	RiskAvoid   = "Avoid"
	RiskUnknown = "Unknown"
)

type IngredientAnalysis struct {
	Name         string `json:"name" validate:"required"`
	Function     string `json:"function"`
	HealthImpact string `json:"health_impact"`
	RiskLevel    string `json:"risk_level"`
	Reasoning    string `json:"reasoning"`
}

// ProductVerdict is the structured result of analysing one product for one
// profile. IngredientsBreakdown keeps the order the model produced.
type ProductVerdict struct {
	OverallRisk          string               `json:"overall_risk" validate:"required"`
	Summary              string               `json:"summary" validate:"required"`
	IngredientsBreakdown []IngredientAnalysis `json:"ingredients_breakdown" validate:"dive"`

	Alternatives           *string `json:"alternatives"`
	AlternativeProductName *string `json:"alternative_product_name"`
	BuyLinkQuery           *string `json:"buy_link_query"`
	RecipeName             *string `json:"recipe_name"`
	RecipeSteps            *string `json:"recipe_steps"`
}

const FallbackSummary = "Could not analyze. Please try again."

// FallbackVerdict returns the degraded record served when an analysis fails.
func FallbackVerdict() ProductVerdict {
	return ProductVerdict{
		OverallRisk:          RiskUnknown,
		Summary:              FallbackSummary,
		IngredientsBreakdown: []IngredientAnalysis{},
	}
}

// IsFallback reports whether v is the fallback record.
func (v ProductVerdict) IsFallback() bool {
	return v.OverallRisk == RiskUnknown &&
		v.Summary == FallbackSummary &&
		len(v.IngredientsBreakdown) == 0
}

// ChatExchange is a single follow-up question about a prior analysis. Context
// is caller-supplied; nothing is retained between exchanges.
type ChatExchange struct {
	Question string
	Context  string
	Profile  HealthProfile
}

const ChatApology = "I couldn't process that question right now."
