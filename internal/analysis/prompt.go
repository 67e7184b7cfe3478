package analysis

import (
	"fmt"

	"github.com/vbonduro/nutrisense/internal/domain"
)

// ImageInstruction stands in for the input text when the ingredients come
// from a label photo sent alongside the prompt.
const ImageInstruction = "Extract and analyze all ingredients from this image."

// StrictRules are embedded verbatim in every analysis prompt. The model is
// expected to honour them; nothing here enforces them.
const StrictRules = `Strict Rules based on Profile:
1. If profile is "Diabetic", any Sugar/Maltodextrin/Glucose is HIGH RISK.
2. If profile is "Vegan", any Animal Product is HIGH RISK.
3. If profile is "Hypertension", any Salt/Sodium is HIGH RISK.
4. If profile is "Gym/Athlete", Protein is Good, Sugar is Bad.`

const analysisTemplate = `Act as a strict Personal Health Consultant for a user with the profile: "%[1]s".
Input Data: "%[2]s"

Your Goal:
Analyze the ingredients specifically impacting a person who is "%[1]s".

%[3]s

Return strictly in this JSON format, with no other text:
{
    "overall_risk": "Safe" or "Caution" or "Avoid",
    "summary": "Specific advice for %[1]s user (max 2 sentences).",
    "ingredients_breakdown": [
        {
            "name": "Ingredient Name",
            "function": "Function",
            "health_impact": "Impact on %[1]s",
            "risk_level": "Low/Moderate/High",
            "reasoning": "Why this is risky/safe for %[1]s"
        }
    ],
    "alternatives": "A general healthier alternative.",
    "alternative_product_name": "Name of a specific healthier brand/product alternative (e.g. 'True Elements Oats')",
    "buy_link_query": "Search query to find this product online (e.g. 'Sugar free oats biscuits')",
    "recipe_name": "Name of a quick home-made alternative (e.g. '5-Min Oat Cookies')",
    "recipe_steps": "Brief 3-step recipe to make it at home."
}
`

const chatTemplate = `You are a Health Expert Assistant.
Context: "%s"
User Profile: "%s"
User Question: "%s"

Task: Answer briefly and helpfully based on the context.
`

// BuildAnalysisPrompt renders the verdict prompt for input (label text or
// ImageInstruction) and profile.
func BuildAnalysisPrompt(input string, profile domain.HealthProfile) string {
	return fmt.Sprintf(analysisTemplate, profile, input, StrictRules)
}

// BuildChatPrompt renders the follow-up question prompt.
func BuildChatPrompt(question, context string, profile domain.HealthProfile) string {
	return fmt.Sprintf(chatTemplate, context, profile, question)
}
