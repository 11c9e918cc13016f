package formmap

import "testing"

func TestClassifyByKeywords(t *testing.T) {
	controls := []Control{
		{Selector: "#imie", Tag: "input", Type: "text", Name: "imie"},
		{Selector: "#nazwisko", Tag: "input", Type: "text", Label: "nazwisko"},
		{Selector: "#mail", Tag: "input", Type: "text", Placeholder: "adres e-mail"},
		{Selector: "#miasto", Tag: "input", Type: "text", Aria: "miasto"},
		{Selector: "#odp", Tag: "textarea"},
	}

	m := Classify(controls)
	want := map[Role]string{
		RoleFirstName: "#imie",
		RoleLastName:  "#nazwisko",
		RoleEmail:     "#mail",
		RoleCity:      "#miasto",
		RoleAnswer:    "#odp",
	}
	for role, sel := range want {
		if m.Selector(role) != sel {
			t.Errorf("%s: expected %s, got %s", role, sel, m.Selector(role))
		}
	}
}

func TestClassifyEmailTypeWinsOutright(t *testing.T) {
	controls := []Control{
		{Selector: "#a", Tag: "input", Type: "email"},
		{Selector: "#b", Tag: "input", Type: "text", Name: "email"},
	}
	m := Classify(controls)
	if m.Selector(RoleEmail) != "#a" {
		t.Errorf("expected typed input to win email role, got %s", m.Selector(RoleEmail))
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	controls := []Control{
		{Selector: "#one", Tag: "input", Type: "text", Name: "imie"},
		{Selector: "#two", Tag: "input", Type: "text", Name: "imie-opiekuna"},
	}
	m := Classify(controls)
	if m.Selector(RoleFirstName) != "#one" {
		t.Errorf("expected first candidate to win, got %s", m.Selector(RoleFirstName))
	}
}

func TestClassifyResidualTextInputs(t *testing.T) {
	controls := []Control{
		{Selector: "input:nth-of-type(1)", Tag: "input", Type: "text"},
		{Selector: "input:nth-of-type(2)", Tag: "input"},
		{Selector: "#mail", Tag: "input", Type: "email"},
		{Selector: "textarea:nth-of-type(1)", Tag: "textarea"},
	}
	m := Classify(controls)
	if m.Selector(RoleFirstName) != "input:nth-of-type(1)" {
		t.Errorf("expected first text input as firstName, got %s", m.Selector(RoleFirstName))
	}
	if m.Selector(RoleLastName) != "input:nth-of-type(2)" {
		t.Errorf("expected second text input as lastName, got %s", m.Selector(RoleLastName))
	}
	if m.Selector(RoleEmail) != "#mail" {
		t.Errorf("expected email-typed input, got %s", m.Selector(RoleEmail))
	}
	if m.Selector(RoleAnswer) != "textarea:nth-of-type(1)" {
		t.Errorf("expected first textarea as answer, got %s", m.Selector(RoleAnswer))
	}
}

func TestClassifyPartialMappingIsNotAnError(t *testing.T) {
	controls := []Control{
		{Selector: "#mail", Tag: "input", Type: "email"},
		{Selector: "#odp", Tag: "textarea", Name: "odpowiedź"},
	}
	m := Classify(controls)
	if m.Selector(RoleEmail) == "" || m.Selector(RoleAnswer) == "" {
		t.Fatal("expected email and answer to resolve")
	}
	if m.Selector(RoleFirstName) != "" || m.Selector(RoleLastName) != "" || m.Selector(RoleCity) != "" {
		t.Errorf("expected unresolved name/city roles, got %v", m.Selectors)
	}
}

func TestClassifyContentEditableAnswer(t *testing.T) {
	controls := []Control{
		{Selector: "div:nth-of-type(3)", Tag: "div", ContentEditable: true},
	}
	m := Classify(controls)
	if m.Selector(RoleAnswer) != "div:nth-of-type(3)" {
		t.Errorf("expected contenteditable to take answer role, got %s", m.Selector(RoleAnswer))
	}
}

func TestClassifyEmptyInventory(t *testing.T) {
	m := Classify(nil)
	if len(m.Selectors) != 0 {
		t.Errorf("expected no selectors, got %v", m.Selectors)
	}
}
