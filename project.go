package identity

import (
	"context"

	"github.com/google/uuid"
)

// Project is the membership read model consumed by the authorizer. The
// project aggregate itself (tasks, notes, team CRUD) lives outside this
// module; only ownership and membership matter here.
type Project struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	MemberIDs []uuid.UUID
}

// HasMember reports whether the account id is in the project's member set.
// Ownership does not imply membership; callers check the owner separately.
func (p *Project) HasMember(accountID uuid.UUID) bool {
	for _, id := range p.MemberIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// ProjectDirectory is the external project/team lookup collaborator.
// Implementations return a not-found error when the project does not exist;
// the authorizer propagates it untouched so existence checks stay ahead of
// authorization decisions.
type ProjectDirectory interface {
	FindProject(ctx context.Context, id uuid.UUID) (*Project, error)
}

// ProjectDirectoryFunc adapts a function into a ProjectDirectory.
type ProjectDirectoryFunc func(ctx context.Context, id uuid.UUID) (*Project, error)

// FindProject satisfies the ProjectDirectory interface.
func (f ProjectDirectoryFunc) FindProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	if f == nil {
		return nil, ErrUnableToParseData
	}
	return f(ctx, id)
}
