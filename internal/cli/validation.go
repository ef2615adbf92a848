package cli

import (
	"strings"

	"github.com/Veraticus/roomrush/internal/config"
)

// RenderValidation lists validation errors and warnings. A clean result
// renders a single success line.
func RenderValidation(r config.Result) string {
	if r.IsValid() && len(r.Warnings) == 0 {
		return FormatSuccess("Configuration is valid")
	}

	var b strings.Builder
	for _, e := range r.Errors {
		b.WriteString(FormatError(e))
		b.WriteString("\n")
	}
	for _, w := range r.Warnings {
		b.WriteString(FormatWarning(w))
		b.WriteString("\n")
	}
	if r.IsValid() {
		b.WriteString(FormatSuccess("Configuration is valid, with warnings"))
	} else {
		b.WriteString(FormatError("Configuration has errors, the run will not start"))
	}
	return b.String()
}
