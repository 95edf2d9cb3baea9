// Package access decides which documents and filters a caller may use.
package access

import (
	"context"
	"strings"

	"github.com/kailas-cloud/mediasearch/internal/domain"
	"github.com/kailas-cloud/mediasearch/internal/domain/document"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/filter"
)

// Role is the permission level of a caller.
type Role string

// Roles.
const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
)

// Principal identifies an authenticated caller.
type Principal struct {
	ID   string
	Role Role
}

// Anonymous is the principal used when authentication is disabled.
var Anonymous = Principal{ID: "anonymous", Role: RoleEditor}

type ctxKey struct{}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal, or Anonymous if none was stored.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(ctxKey{}).(Principal); ok {
		return p
	}
	return Anonymous
}

// CanSee reports whether the principal may see the document.
// Viewers only see published documents shared publicly or with the organization.
func (p Principal) CanSee(doc document.Document) bool {
	if p.Role == RoleEditor {
		return true
	}
	return doc.Status() == document.StatusPublished && doc.Visibility() != document.VisibilityPrivate
}

// Authorize rejects filters that reference documents outside the principal's scope.
func (p Principal) Authorize(c filter.Criteria) error {
	if p.Role == RoleEditor {
		return nil
	}
	if c.Status != "" && !strings.EqualFold(c.Status, string(document.StatusPublished)) {
		return domain.ErrPermissionDenied
	}
	if strings.EqualFold(c.Visibility, string(document.VisibilityPrivate)) {
		return domain.ErrPermissionDenied
	}
	return nil
}
