// Package narrative optionally enriches verdict reasons with human-readable
// prose from an LLM provider. Enrichment is a pure side channel: it appends
// text and can never change a score or a decision, and every failure mode
// falls back to the deterministic reasoning string.
package narrative

import (
	"context"

	"github.com/cordonhq/cordon/internal/models"
)

// Augmenter produces optional prose to append to a verdict's reason.
type Augmenter interface {
	// Augment returns additional prose for the verdict, or "" when it has
	// nothing to add. Errors are advisory; callers drop them.
	Augment(ctx context.Context, verdict *models.Verdict) (string, error)
}

// Noop is the default augmenter: it adds nothing.
type Noop struct{}

// Augment implements Augmenter.
func (Noop) Augment(context.Context, *models.Verdict) (string, error) {
	return "", nil
}
