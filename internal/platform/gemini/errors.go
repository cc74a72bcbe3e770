package gemini

import (
	"fmt"
	"strings"

	"github.com/shelfmark/enrich/internal/enrichment"
)

// classifyError maps a raw Gemini API error onto the enrichment taxonomy.
// The API surfaces quota and auth problems through the HTTP status embedded
// in the error text (429 RESOURCE_EXHAUSTED for quota, 400 API_KEY_INVALID
// or 403 PERMISSION_DENIED for a bad key); anything else is transient.
func classifyError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "RESOURCE_EXHAUSTED"),
		strings.Contains(lower, "quota"):
		return fmt.Errorf("%w: %s", enrichment.ErrResourceExhausted, msg)

	case strings.Contains(msg, "API_KEY_INVALID"),
		strings.Contains(lower, "api key not valid"),
		strings.Contains(msg, "PERMISSION_DENIED"),
		strings.Contains(msg, "400"):
		return fmt.Errorf("%w: %s", enrichment.ErrInvalidCredential, msg)

	default:
		return fmt.Errorf("%w: %s", enrichment.ErrTransient, msg)
	}
}
