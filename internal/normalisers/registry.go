package normalisers

import (
	"context"
	"fmt"
	"mime"
	"slices"
	"sort"
	"strings"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Normaliser = (*Registry)(nil)

// Registry selects the highest-priority normaliser for a MIME type.
type Registry struct {
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser.
func (r *Registry) Register(n driven.Normaliser) {
	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// Get returns the preferred normaliser for a MIME type. Parameters such as
// "; charset=utf-8" are ignored.
func (r *Registry) Get(mimeType string) (driven.Normaliser, error) {
	base := baseMIMEType(mimeType)
	for _, n := range r.normalisers {
		if slices.Contains(n.SupportedMIMETypes(), base) {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
}

// SupportedMIMETypes returns every MIME type some normaliser handles, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	var types []string
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if !slices.Contains(types, t) {
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Priority returns zero; a registry is never chosen over a concrete normaliser.
func (r *Registry) Priority() int {
	return 0
}

// Normalise dispatches to the normaliser for raw.MIMEType.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	n, err := r.Get(raw.MIMEType)
	if err != nil {
		return nil, err
	}
	return n.Normalise(ctx, raw)
}

func baseMIMEType(mimeType string) string {
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		return base
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
