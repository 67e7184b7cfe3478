package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/nutrisense/internal/domain"
)

const verdictJSON = `{
  "overall_risk": "Avoid",
  "summary": "High sugar content. Not suitable for diabetics.",
  "ingredients_breakdown": [
    {"name": "Sugar", "function": "Sweetener", "health_impact": "Spikes glucose", "risk_level": "High", "reasoning": "Simple sugar"},
    {"name": "Salt", "function": "Flavour", "health_impact": "Neutral", "risk_level": "Low", "reasoning": "Small amount"}
  ],
  "alternatives": "Unsweetened oats",
  "recipe_name": "5-Min Oat Cookies"
}`

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "json fence", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", raw: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "no fence", raw: `  {"a":1}  `, want: `{"a":1}`},
		{name: "leading text whitespace", raw: "\n\n```json {\"a\":1} ```\n", want: `{"a":1}`},
		{name: "empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.raw))
		})
	}
}

func TestParseVerdictFencedMatchesUnfenced(t *testing.T) {
	plain, err := ParseVerdict(verdictJSON)
	require.NoError(t, err)

	for _, wrapped := range []string{
		"```json\n" + verdictJSON + "\n```",
		"```\n" + verdictJSON + "\n```",
		"  ```json" + verdictJSON + "```  ",
	} {
		fenced, err := ParseVerdict(wrapped)
		require.NoError(t, err)
		assert.Equal(t, plain, fenced)
	}
}

func TestParseVerdictFields(t *testing.T) {
	v, err := ParseVerdict(verdictJSON)
	require.NoError(t, err)

	assert.Equal(t, "Avoid", v.OverallRisk)
	assert.Equal(t, "High sugar content. Not suitable for diabetics.", v.Summary)
	require.Len(t, v.IngredientsBreakdown, 2)
	assert.Equal(t, "Sugar", v.IngredientsBreakdown[0].Name)
	assert.Equal(t, "High", v.IngredientsBreakdown[0].RiskLevel)
	assert.Equal(t, "Salt", v.IngredientsBreakdown[1].Name)
	require.NotNil(t, v.Alternatives)
	assert.Equal(t, "Unsweetened oats", *v.Alternatives)
	require.NotNil(t, v.RecipeName)
	assert.Nil(t, v.RecipeSteps)
	assert.Nil(t, v.BuyLinkQuery)
	assert.Nil(t, v.AlternativeProductName)
}

func TestParseVerdictCoercion(t *testing.T) {
	v, err := ParseVerdict(`{"overall_risk": "  ", "summary": "Fine.", "alternatives": " ", "extra": 1}`)
	require.NoError(t, err)

	assert.Equal(t, domain.RiskUnknown, v.OverallRisk)
	assert.NotNil(t, v.IngredientsBreakdown)
	assert.Empty(t, v.IngredientsBreakdown)
	assert.Nil(t, v.Alternatives)
}

func TestParseVerdictRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "only fences", raw: "```json\n```"},
		{name: "prose", raw: "I cannot analyze this product."},
		{name: "truncated", raw: `{"overall_risk": "Safe", "summary": "ok"`},
		{name: "array", raw: `[1, 2, 3]`},
		{name: "missing summary", raw: `{"overall_risk": "Safe", "ingredients_breakdown": []}`},
		{name: "unnamed ingredient", raw: `{"overall_risk": "Safe", "summary": "ok", "ingredients_breakdown": [{"name": " "}]}`},
		{name: "wrong type", raw: `{"overall_risk": "Safe", "summary": "ok", "ingredients_breakdown": "none"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVerdict(tt.raw)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}
