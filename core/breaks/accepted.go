package breaks

import (
	"fmt"
	"strings"
)

// AcceptedBreak is one break a project has chosen to accept. Code is the
// analyzer's category for the break. OldElement and NewElement describe the
// API element before and after the change; an empty string means the
// element does not exist on that side (e.g. a removed method has no new
// element).
type AcceptedBreak struct {
	Code       string
	OldElement string
	NewElement string
}

// Validate checks the fields that must be present.
func (b AcceptedBreak) Validate() error {
	if strings.TrimSpace(b.Code) == "" {
		return fmt.Errorf("accepted break %s has an empty code", b)
	}
	return nil
}

// Compare orders breaks by code, old element and new element.
func (b AcceptedBreak) Compare(o AcceptedBreak) int {
	if c := strings.Compare(b.Code, o.Code); c != 0 {
		return c
	}
	if c := strings.Compare(b.OldElement, o.OldElement); c != 0 {
		return c
	}
	return strings.Compare(b.NewElement, o.NewElement)
}

func (b AcceptedBreak) String() string {
	var sb strings.Builder
	sb.WriteString(b.Code)
	if b.OldElement != "" {
		sb.WriteString(" old=")
		sb.WriteString(b.OldElement)
	}
	if b.NewElement != "" {
		sb.WriteString(" new=")
		sb.WriteString(b.NewElement)
	}
	return sb.String()
}

// CompareAcceptedBreaks adapts AcceptedBreak.Compare for sorting helpers.
func CompareAcceptedBreaks(a, b AcceptedBreak) int {
	return a.Compare(b)
}
