package formmap

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed js/scan_fields.js
var scanFieldsScript string

// Evaler runs a JavaScript function in the page and decodes its return
// value. Satisfied by the browser session.
type Evaler interface {
	Eval(ctx context.Context, js string, out any) error
}

// Scan inventories all visible, enabled, non-hidden form controls in the
// current page and classifies them into a Mapping.
func Scan(ctx context.Context, page Evaler) (*Mapping, error) {
	var controls []Control
	if err := page.Eval(ctx, scanFieldsScript, &controls); err != nil {
		return nil, fmt.Errorf("scanning form fields: %w", err)
	}
	return Classify(controls), nil
}
