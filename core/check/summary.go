package check

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	passColor  = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
	codeColor  = color.New(color.FgYellow)
	faintColor = color.New(color.Faint)
)

// PrintSummary writes a short colored summary of res to w.
func PrintSummary(w io.Writer, module fmt.Stringer, res Result) {
	if res.Passed {
		passColor.Fprint(w, "PASS")
		fmt.Fprintf(w, " %s: no unaccepted API breaks", module)
		if n := len(res.Accepted); n > 0 {
			faintColor.Fprintf(w, " (%d accepted)", n)
		}
		fmt.Fprintln(w)
		return
	}

	failColor.Fprint(w, "FAIL")
	fmt.Fprintf(w, " %s: %d unaccepted API break(s)\n", module, len(res.Unaccepted))
	for _, f := range res.Unaccepted {
		fmt.Fprint(w, "  ")
		codeColor.Fprint(w, f.Break.Code)
		if f.Break.OldElement != "" {
			fmt.Fprintf(w, " %s", f.Break.OldElement)
		}
		if f.Break.NewElement != "" {
			faintColor.Fprintf(w, " -> %s", f.Break.NewElement)
		}
		fmt.Fprintln(w)
	}
}
