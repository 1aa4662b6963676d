package seo

import "strings"

const (
	slugPrefix          = "reparateur"
	accentedSlugPrefix  = "réparateur"
	serviceSlugSegment  = "-"
	frenchTokenSmartph  = "smartphone"
	frenchTokenTablet   = "tablette"
	frenchTokenComputer = "ordinateur"
)

// deaccenter maps the four accented characters that appear in legacy slugs
// to their unaccented equivalents. The resolver depends on this exact set;
// broader Unicode folding would rewrite characters it must leave untouched.
var deaccenter = strings.NewReplacer(
	"é", "e",
	"è", "e",
	"à", "a",
	"ç", "c",
)

// Deaccent replaces é, è, à and ç with their unaccented equivalents.
func Deaccent(value string) string {
	return deaccenter.Replace(value)
}

// ContainsAccents reports whether value carries any of the four accented
// characters handled by Deaccent.
func ContainsAccents(value string) bool {
	return strings.ContainsAny(value, "éèàç")
}

// Accentuate rewrites every unaccented "reparateur" token into its accented
// form, matching slugs produced by earlier generation runs.
func Accentuate(value string) string {
	return strings.ReplaceAll(value, slugPrefix, accentedSlugPrefix)
}

// Slugify converts a raw city name into its URL-safe form: lowercase,
// de-accented, hyphen-joined, restricted to [a-z0-9-].
func Slugify(city string) string {
	lowered := strings.ToLower(strings.TrimSpace(city))
	lowered = Deaccent(lowered)

	var builder strings.Builder
	builder.Grow(len(lowered))
	previousHyphen := false
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			previousHyphen = false
		case r == ' ', r == '-', r == '\'', r == '_':
			if !previousHyphen && builder.Len() > 0 {
				builder.WriteByte('-')
				previousHyphen = true
			}
		}
	}
	return strings.TrimSuffix(builder.String(), "-")
}

// serviceSlugToken returns the French URL token for a service type.
func serviceSlugToken(serviceType ServiceType) string {
	switch serviceType {
	case ServiceTypeTablet:
		return frenchTokenTablet
	case ServiceTypeComputer:
		return frenchTokenComputer
	default:
		return frenchTokenSmartph
	}
}

// DeriveSlug builds the canonical slug for a service/city pair, e.g.
// ("smartphone", "Nantes") -> "reparateur-smartphone-nantes".
func DeriveSlug(serviceType ServiceType, city CityName) string {
	return slugPrefix + serviceSlugSegment + serviceSlugToken(serviceType) + serviceSlugSegment + Slugify(city.String())
}
