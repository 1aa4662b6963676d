package seo

import "testing"

func TestSlugifyNormalizesCityNames(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "Nantes", expected: "nantes"},
		{name: "accented", input: "Orléans", expected: "orleans"},
		{name: "hyphenated", input: "Saint-Étienne", expected: "saint-etienne"},
		{name: "spaces", input: "Le Mans", expected: "le-mans"},
		{name: "apostrophe", input: "L'Isle-Adam", expected: "l-isle-adam"},
		{name: "cedilla", input: "Besançon", expected: "besancon"},
		{name: "grave-accent", input: "Asnières", expected: "asnieres"},
		{name: "surrounding-whitespace", input: "  Lyon  ", expected: "lyon"},
		{name: "repeated-separators", input: "Aix -- en -- Provence", expected: "aix-en-provence"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			if got := Slugify(testCase.input); got != testCase.expected {
				t.Fatalf("Slugify(%q) = %q, expected %q", testCase.input, got, testCase.expected)
			}
		})
	}
}

func TestDeriveSlugUsesFrenchServiceTokens(t *testing.T) {
	tests := []struct {
		serviceType ServiceType
		city        string
		expected    string
	}{
		{serviceType: ServiceTypeSmartphone, city: "Nantes", expected: "reparateur-smartphone-nantes"},
		{serviceType: ServiceTypeTablet, city: "Lyon", expected: "reparateur-tablette-lyon"},
		{serviceType: ServiceTypeComputer, city: "Saint-Étienne", expected: "reparateur-ordinateur-saint-etienne"},
	}

	for _, testCase := range tests {
		city := mustCity(t, testCase.city)
		if got := DeriveSlug(testCase.serviceType, city); got != testCase.expected {
			t.Fatalf("DeriveSlug(%s, %s) = %q, expected %q", testCase.serviceType, testCase.city, got, testCase.expected)
		}
	}
}

func TestDeaccentReplacesExactlyFourCharacters(t *testing.T) {
	if got := Deaccent("réparateur-à-besançon-très-pressé"); got != "reparateur-a-besancon-tres-presse" {
		t.Fatalf("unexpected de-accent result: %q", got)
	}
	// Characters outside the legacy set must pass through untouched.
	if got := Deaccent("noël-ê-ô"); got != "noël-ê-ô" {
		t.Fatalf("de-accent should not rewrite characters outside the set, got %q", got)
	}
}

func TestContainsAccents(t *testing.T) {
	if !ContainsAccents("réparateur") {
		t.Fatalf("expected accents to be detected")
	}
	if ContainsAccents("reparateur-smartphone-lyon") {
		t.Fatalf("expected no accents to be detected")
	}
}

func TestAccentuateRewritesEveryToken(t *testing.T) {
	if got := Accentuate("reparateur-ordinateur-reparateur"); got != "réparateur-ordinateur-réparateur" {
		t.Fatalf("unexpected accentuate result: %q", got)
	}
}
