package registry

import (
	"fmt"
	"strings"
)

// TemplateNotFoundError reports that no active casier is registered for a
// key. It is a configuration gap, not something the requester can fix.
type TemplateNotFoundError struct {
	Key Key
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no document template registered for %s", e.Key)
}

// TemplateIncompleteError reports a registered casier whose source content
// is not configured yet.
type TemplateIncompleteError struct {
	Key        Key
	TemplateID string
	Missing    []string
}

func (e *TemplateIncompleteError) Error() string {
	return fmt.Sprintf("document template %q for %s is missing source content: %s",
		e.TemplateID, e.Key, strings.Join(e.Missing, ", "))
}
