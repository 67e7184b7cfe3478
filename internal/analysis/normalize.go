package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/nutrisense/internal/domain"
)

// ErrMalformedResponse wraps every reason a model answer could not be turned
// into a verdict.
var ErrMalformedResponse = errors.New("malformed model response")

var validate = validator.New(validator.WithRequiredStructEnabled())

// StripCodeFences removes Markdown fence markers (```json and bare ```)
// wherever they appear, then trims surrounding whitespace.
func StripCodeFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseVerdict decodes a model answer into a verdict, coercing soft gaps
// (blank risk, missing breakdown, blank optional fields) and rejecting
// answers without a summary or with unnamed ingredients.
func ParseVerdict(raw string) (domain.ProductVerdict, error) {
	var v domain.ProductVerdict

	body := StripCodeFences(raw)
	if body == "" {
		return v, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	coerce(&v)

	if err := validate.Struct(v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return v, nil
}

func coerce(v *domain.ProductVerdict) {
	v.OverallRisk = strings.TrimSpace(v.OverallRisk)
	if v.OverallRisk == "" {
		v.OverallRisk = domain.RiskUnknown
	}
	v.Summary = strings.TrimSpace(v.Summary)
	if v.IngredientsBreakdown == nil {
		v.IngredientsBreakdown = []domain.IngredientAnalysis{}
	}
	for i := range v.IngredientsBreakdown {
		v.IngredientsBreakdown[i].Name = strings.TrimSpace(v.IngredientsBreakdown[i].Name)
	}
	for _, field := range []**string{
		&v.Alternatives,
		&v.AlternativeProductName,
		&v.BuyLinkQuery,
		&v.RecipeName,
		&v.RecipeSteps,
	} {
		if *field != nil && strings.TrimSpace(**field) == "" {
			*field = nil
		}
	}
}
