package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/vk/flowgrid/internal/validation"
)

var (
	errorColor   = color.RGB(229, 50, 50)
	warningColor = color.RGB(229, 170, 50)
	validColor   = color.RGB(50, 108, 229)
)

// renderMarkers prints one line per marker, document markers first.
func renderMarkers(w io.Writer, file string, markers validation.Markers) {
	if markers.Count(validation.SeverityError)+markers.Count(validation.SeverityWarning) == 0 {
		fmt.Fprintln(w, validColor.Sprint("Valid!"), "no errors found.")
		return
	}
	for _, id := range markers.IDs() {
		for _, m := range markers[id] {
			label := warningColor.Sprint("Warning!")
			if m.Severity == validation.SeverityError {
				label = errorColor.Sprint("Error!")
			}
			fmt.Fprintln(w, label, location(file, id, m)+":", m.Message)
		}
	}
	fmt.Fprintf(w, "%d error(s), %d warning(s)\n",
		markers.Count(validation.SeverityError), markers.Count(validation.SeverityWarning))
}

func location(file, id string, m validation.Marker) string {
	loc := file
	if m.Range != nil {
		loc = fmt.Sprintf("%s:%d:%d", file, m.Range.Start.Line, m.Range.Start.Column)
	}
	if id != validation.DocumentID {
		loc += " " + id
	}
	return loc
}
