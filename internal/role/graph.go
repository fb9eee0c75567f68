package role

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Graph answers role questions about a principal. Assignment sets are cached
// per principal for a short time.
type Graph struct {
	repo  Repository
	cache *expirable.LRU[int64, []Assignment]
}

// NewGraph creates a Graph over repo. A ttl or size of zero disables the cache.
func NewGraph(repo Repository, size int, ttl time.Duration) *Graph {
	g := &Graph{repo: repo}
	if size > 0 && ttl > 0 {
		g.cache = expirable.NewLRU[int64, []Assignment](size, nil, ttl)
	}
	return g
}

func (g *Graph) assignments(ctx context.Context, principalID int64) ([]Assignment, error) {
	if g.cache != nil {
		if as, ok := g.cache.Get(principalID); ok {
			return as, nil
		}
	}

	as, err := g.repo.ActiveAssignments(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		g.cache.Add(principalID, as)
	}
	return as, nil
}

// Invalidate drops any cached assignments of the principal.
func (g *Graph) Invalidate(principalID int64) {
	if g.cache != nil {
		g.cache.Remove(principalID)
	}
}

// RolesFor returns the principal's active assignments. When org is non-nil
// the result is limited to that organization plus global assignments. The
// returned slice is the caller's to modify.
func (g *Graph) RolesFor(ctx context.Context, principalID int64, org *int64) ([]Assignment, error) {
	as, err := g.assignments(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return slices.Clone(as), nil
	}

	var out []Assignment
	for _, a := range as {
		if a.Global() || a.InOrganization(*org) {
			out = append(out, a)
		}
	}
	return out, nil
}

// IsSystemAdmin reports whether any active assignment is SystemAdmin,
// regardless of organization.
func (g *Graph) IsSystemAdmin(ctx context.Context, principalID int64) (bool, error) {
	as, err := g.assignments(ctx, principalID)
	if err != nil {
		return false, err
	}
	for _, a := range as {
		if a.Role == SystemAdmin {
			return true, nil
		}
	}
	return false, nil
}

// IsOrgAdmin reports whether the principal holds OrgAdmin scoped to org.
func (g *Graph) IsOrgAdmin(ctx context.Context, principalID, org int64) (bool, error) {
	as, err := g.assignments(ctx, principalID)
	if err != nil {
		return false, err
	}
	for _, a := range as {
		if a.Role == OrgAdmin && a.InOrganization(org) {
			return true, nil
		}
	}
	return false, nil
}

// HoldsClass reports whether any active assignment is scoped to class.
func (g *Graph) HoldsClass(ctx context.Context, principalID, class int64) (bool, error) {
	as, err := g.assignments(ctx, principalID)
	if err != nil {
		return false, err
	}
	for _, a := range as {
		if a.ClassID != nil && *a.ClassID == class {
			return true, nil
		}
	}
	return false, nil
}
