package formmap

import "strings"

// Per-role keyword sets, Polish and English. Matched against name, id,
// placeholder, aria-label and associated label text.
var roleKeywords = map[Role][]string{
	RoleFirstName: {"imię", "imie", "first name", "firstname"},
	RoleLastName:  {"nazwisko", "last name", "lastname"},
	RoleEmail:     {"email", "e-mail", "adress e-mail", "adres e-mail", "mail"},
	RoleCity:      {"miasto", "city"},
	RoleAnswer:    {"twoja odpowiedź", "odpowiedź", "answer", "treść odpowiedzi"},
}

// rule is one classification predicate for one role.
type rule struct {
	role  Role
	match func(Control) bool
}

// ruleTable is evaluated per control in document order; the first match for
// an unassigned role wins and later candidates are ignored. Type rules come
// before keyword rules, mirroring how explicit input types beat labels.
var ruleTable = []rule{
	{RoleEmail, func(c Control) bool { return c.Type == "email" }},
	{RoleAnswer, func(c Control) bool { return c.Tag == "textarea" || c.ContentEditable }},
	{RoleFirstName, keywordRule(RoleFirstName)},
	{RoleLastName, keywordRule(RoleLastName)},
	{RoleEmail, keywordRule(RoleEmail)},
	{RoleCity, keywordRule(RoleCity)},
	{RoleAnswer, keywordRule(RoleAnswer)},
}

func keywordRule(role Role) func(Control) bool {
	keywords := roleKeywords[role]
	return func(c Control) bool {
		for _, field := range []string{c.Name, c.ID, c.Placeholder, c.Aria, c.Label} {
			if field == "" {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(field, kw) {
					return true
				}
			}
		}
		return false
	}
}

// Classify assigns roles to scanned controls. Role resolution is independent
// per role: a role with no match stays unassigned.
func Classify(controls []Control) *Mapping {
	m := &Mapping{
		Selectors: make(map[Role]string),
		Controls:  controls,
	}

	for _, c := range controls {
		for _, r := range ruleTable {
			if _, taken := m.Selectors[r.role]; taken {
				continue
			}
			if r.match(c) {
				m.Selectors[r.role] = c.Selector
			}
		}
	}

	applyResiduals(m, controls)
	return m
}

// applyResiduals fills still-unassigned roles from document position: the
// first two untyped text inputs become first and last name, any email-typed
// input serves the email role, the first textarea serves the answer role.
func applyResiduals(m *Mapping, controls []Control) {
	var textInputs []Control
	for _, c := range controls {
		if c.Tag == "input" && (c.Type == "text" || c.Type == "") {
			textInputs = append(textInputs, c)
		}
	}

	if _, ok := m.Selectors[RoleFirstName]; !ok && len(textInputs) > 0 {
		m.Selectors[RoleFirstName] = textInputs[0].Selector
	}
	if _, ok := m.Selectors[RoleLastName]; !ok && len(textInputs) > 1 {
		m.Selectors[RoleLastName] = textInputs[1].Selector
	}

	if _, ok := m.Selectors[RoleEmail]; !ok {
		for _, c := range controls {
			if c.Type == "email" {
				m.Selectors[RoleEmail] = c.Selector
				break
			}
		}
	}

	if _, ok := m.Selectors[RoleAnswer]; !ok {
		for _, c := range controls {
			if c.Tag == "textarea" {
				m.Selectors[RoleAnswer] = c.Selector
				break
			}
		}
	}
}
