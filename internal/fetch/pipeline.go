package fetch

import (
	"context"

	"genstudio/internal/domain"
)

// Pipeline resolves a result pointer and, when a Rehoster is set, copies the
// assets into local storage.
type Pipeline struct {
	Resolver Resolver
	Rehoster *Rehoster
}

// Fetch implements the orchestrator's fetch step.
func (p Pipeline) Fetch(ctx context.Context, ptr domain.ResultPointer, seed int64) ([]domain.AssetRef, error) {
	remote, err := p.Resolver.Resolve(ctx, ptr)
	if err != nil {
		return nil, err
	}
	if p.Rehoster != nil {
		return p.Rehoster.Rehost(ctx, remote, seed)
	}
	refs := make([]domain.AssetRef, 0, len(remote))
	for _, a := range remote {
		refs = append(refs, domain.AssetRef{URL: a.URL, Filename: a.Filename})
	}
	return refs, nil
}
