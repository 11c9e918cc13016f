package resolve

import "strings"

// stepTemplate is a canned three-step answer for a recurring question topic.
type stepTemplate struct {
	keywords []string
	steps    []string
}

var stepTemplates = []stepTemplate{
	{
		keywords: []string{
			"proces projektowania aplikacji", "proces projektowania oprogramowania",
			"jak wygląda proces projektowania", "software design process",
			"pierwsze trzy kroki projektowania aplikacji",
		},
		steps: []string{
			"Analiza wymagań (cele biznesowe, użytkownicy, zakres)",
			"Projekt rozwiązania/architektury (technologie, moduły, integracje)",
			"Makiety lub prototyp UX (przepływy, walidacja z interesariuszami)",
		},
	},
	{
		keywords: []string{
			"proces testowania", "jak wygląda proces testowania", "testowanie aplikacji",
			"pierwsze trzy kroki testowania", "software testing process",
		},
		steps: []string{
			"Plan testów i przygotowanie przypadków (zakres, kryteria wejścia/wyjścia)",
			"Testy jednostkowe i integracyjne w CI (uruchomienia automatyczne)",
			"Testy systemowe/UAT i raportowanie błędów (triage, priorytety)",
		},
	},
	{
		keywords: []string{
			"proces wdrażania", "wdrożenie", "deployment", "release process",
			"pierwsze kroki wdrażania",
		},
		steps: []string{
			"Przygotowanie środowisk i pipeline CI/CD (dev/stage/prod)",
			"Konfiguracja aplikacji, migracje bazy i zarządzanie sekretami",
			"Rollout i monitoring (canary/blue-green), plan rollbacku",
		},
	},
	{
		keywords: []string{
			"publikacja w sklepach", "google play", "app store", "jak opublikować aplikację",
			"release w sklepach", "dystrybucja mobilna",
		},
		steps: []string{
			"Zbudowanie i podpisanie pakietów (Android .aab/.apk, iOS .ipa)",
			"Przygotowanie listingów (opis, grafiki, polityka prywatności)",
			"Wysłanie do review/testów beta (TestFlight/closed track) i konfiguracja wersji",
		},
	},
}

// TemplateSteps returns a canned three-step answer for known recurring
// question topics, or nil.
func TemplateSteps(q string) []string {
	ql := strings.ToLower(q)
	if ql == "" {
		return nil
	}
	for _, t := range stepTemplates {
		for _, kw := range t.keywords {
			if strings.Contains(ql, kw) {
				return t.steps
			}
		}
	}
	return nil
}
