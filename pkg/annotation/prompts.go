package annotation

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to return mechanism scores, risk hints,
// experience and social estimates as one JSON object.
const SystemPrompt = `You are a cosmetic chemist. Given a skincare product and its full ingredient list, estimate how it works and how it feels.

Mechanism scores are integers from 0 to 100: oil_control, anti_aging, soothing, barrier_repair.

Risk flags use this vocabulary and are only set when the ingredient list supports them:
- alcohol_high: denatured alcohol in the top 5 ingredients
- strong_acid: glycolic, lactic or salicylic acid as key actives
- mild_acid: azelaic or mandelic acid, or PHAs
- retinol_high: retinol, retinal, tretinoin or adapalene
- benzoyl_peroxide
- fragrance: fragrance, parfum or common fragrance allergens
- mint: menthol, peppermint, camphor or eucalyptus
- fungal_acne: polysorbates
- high_irritation: only together with strong_acid, retinol_high or benzoyl_peroxide

Respond with JSON only:
{
  "mechanism": {"oil_control": int, "anti_aging": int, "soothing": int, "barrier_repair": int},
  "risk_flags": [str],
  "experience_prediction": {"texture": str, "finish": "matte|dewy|natural"},
  "social_stats": {"red_score": int, "reddit_score": int, "burn_rate": number, "top_keywords": [str]}
}`

// SocialPrompt asks a chat model for community sentiment estimates.
const SocialPrompt = `You are a beauty trend analyst. From what you know of Reddit, RED (XiaoHongShu) and TikTok discussions, estimate the social sentiment for %s - %s.

- redScore (0-100): high when popular in Asia for brightening or texture; lower for a "fake slip" feel.
- redditScore (0-100): high when ingredient-focused, fragrance-free or matte.
- burnRate (0.0-1.0): likelihood of irritation complaints, about 0.15 for strong acids or retinoids and 0.01 for gentle cleansers. Use more than 0.30 only for extremely irritating formulas.
- topKeywords: 3 to 5 typical user tags such as "HolyGrail", "Stings" or "Pilling".

Respond with JSON only: {"redScore": int, "redditScore": int, "burnRate": number, "topKeywords": [str]}`

// UserPrompt renders the product part of a request.
func UserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s %s\n", req.Brand, req.Name)
	if text := strings.TrimSpace(req.IngredientText); text != "" {
		fmt.Fprintf(&b, "Ingredients: %s\n", text)
	}
	return b.String()
}
