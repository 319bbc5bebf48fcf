package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
)

// Caller is the authenticated identity a request acts as.
type Caller struct {
	UserID      uuid.UUID
	Role        string
	IsStaff     bool
	IsSuperuser bool
}

func CallerFromContext(ctx context.Context) *Caller {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil
	}
	return &Caller{
		UserID:      rd.UserID,
		Role:        rd.Role,
		IsStaff:     rd.IsStaff,
		IsSuperuser: rd.IsSuperuser,
	}
}

func (c *Caller) IsModerator() bool { return c != nil && c.Role == types.RoleModerator }

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// IsModeratorOrReadOnly admits any authenticated caller for safe methods and
// only moderators otherwise.
func IsModeratorOrReadOnly(c *Caller, method string) bool {
	if c == nil {
		return false
	}
	if isSafeMethod(method) {
		return true
	}
	return c.IsModerator()
}

// IsOwner is false for unowned objects.
func IsOwner(c *Caller, ownerID *uuid.UUID) bool {
	return c != nil && ownerID != nil && *ownerID == c.UserID
}

func CanModify(c *Caller, method string, ownerID *uuid.UUID) bool {
	return IsModeratorOrReadOnly(c, method) || IsOwner(c, ownerID)
}

// IsAdmin gates user deletion.
func IsAdmin(c *Caller) bool {
	return c != nil && (c.IsStaff || c.IsSuperuser)
}

// Sees reports whether an object with ownerID is inside the caller's visibility scope.
func Sees(c *Caller, ownerID *uuid.UUID) bool {
	if c == nil {
		return false
	}
	return c.IsModerator() || IsOwner(c, ownerID)
}

// ScopeFor is the list filter matching Sees.
func ScopeFor(c *Caller) repos.Scope {
	if c == nil || c.IsModerator() {
		return repos.Scope{}
	}
	id := c.UserID
	return repos.Scope{OwnerID: &id}
}

var (
	errUnauthenticated = apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("Authentication credentials were not provided."))
	errNoPermission    = apierr.Forbidden("You do not have permission to perform this action.")
)

func requireCaller(ctx context.Context) (*Caller, error) {
	c := CallerFromContext(ctx)
	if c == nil {
		return nil, errUnauthenticated
	}
	return c, nil
}

const methodDelete = http.MethodDelete

func methodFor(partial bool) string {
	if partial {
		return http.MethodPatch
	}
	return http.MethodPut
}
