package dataset

import (
	"fmt"
	"strings"
)

// maxSchemaExamples limits how many sample values appear per column in the
// schema description.
const maxSchemaExamples = 5

// Schema renders a frame's structure as a text description suitable as
// code-generation context: shape, then per column its type, non-null and
// unique counts, plus example values or the numeric range.
func Schema(f *Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shape: %d rows x %d columns\n\n", f.NumRows(), f.NumCols())
	b.WriteString("Columns:\n")

	for _, name := range f.Columns() {
		c, _ := f.column(name)
		s, _ := f.Col(name)
		uniques, _ := f.Unique(name)

		dtype := "string"
		if c.Numeric {
			dtype = "number"
		}

		var detail string
		if !c.Numeric || len(uniques) <= 10 {
			n := len(uniques)
			if n > maxSchemaExamples {
				n = maxSchemaExamples
			}
			detail = fmt.Sprintf("Examples: [%s]", strings.Join(uniques[:n], ", "))
		} else {
			detail = fmt.Sprintf("Range: [%s, %s]", formatFloat(s.Min()), formatFloat(s.Max()))
		}

		fmt.Fprintf(&b, "  - %s: %s (%d non-null, %d unique) | %s\n",
			name, dtype, s.Count(), len(uniques), detail)
	}
	return strings.TrimRight(b.String(), "\n")
}
