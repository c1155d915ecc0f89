package billing

import (
	"strings"

	"github.com/ManuelReschke/salvaplantao/app/models"
)

// PlanCodeFromSlug maps the storefront slugs (Portuguese and English) to an
// internal plan code. Unknown slugs map to "".
func PlanCodeFromSlug(slug string) string {
	switch strings.ToLower(strings.TrimSpace(slug)) {
	case "mensal", "monthly":
		return models.PlanMonthly
	case "semestral", "semiannual", "semiannually":
		return models.PlanSemiannual
	case "anual", "annual", "yearly":
		return models.PlanAnnual
	default:
		return ""
	}
}

func normalizePlanCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// resolvePlanCode prefers an explicit plan code and falls back to the slug.
func resolvePlanCode(planCode, planSlug string) string {
	if c := normalizePlanCode(planCode); c != "" {
		return c
	}
	return PlanCodeFromSlug(planSlug)
}
