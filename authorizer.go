package identity

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProjectRole is the authorization role an account holds on a project
type ProjectRole string

const (
	// RoleOwner owns the project (i.e. full project, task, and team control)
	RoleOwner ProjectRole = "owner"
	// RoleMember belongs to the project team (i.e. read, task-status updates)
	RoleMember ProjectRole = "member"
	// RoleUnauthorized has no relationship with the project
	RoleUnauthorized ProjectRole = "unauthorized"
)

// IsValid checks if the role is one of the predefined valid roles
func (r ProjectRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleMember, RoleUnauthorized:
		return true
	default:
		return false
	}
}

// CanView checks if this role can read the project, its tasks, and notes
func (r ProjectRole) CanView() bool {
	switch r {
	case RoleOwner, RoleMember:
		return true
	default:
		return false
	}
}

// CanUpdateTaskStatus checks if this role can move tasks between statuses
func (r ProjectRole) CanUpdateTaskStatus() bool {
	switch r {
	case RoleOwner, RoleMember:
		return true
	default:
		return false
	}
}

// CanManageTasks checks if this role can create, update, and delete tasks
func (r ProjectRole) CanManageTasks() bool {
	return r == RoleOwner
}

// CanMutateProject checks if this role can update or delete the project
func (r ProjectRole) CanMutateProject() bool {
	return r == RoleOwner
}

// CanManageTeam checks if this role can change project membership
func (r ProjectRole) CanManageTeam() bool {
	return r == RoleOwner
}

// ParseProjectRole safely parses a string into a ProjectRole type
func ParseProjectRole(roleStr string) (ProjectRole, bool) {
	role := ProjectRole(roleStr)
	return role, role.IsValid()
}

// ProjectAuthorizer derives an account's role on a project from the
// ownership and membership records held by the ProjectDirectory.
type ProjectAuthorizer struct {
	directory ProjectDirectory
	logger    Logger
}

func NewProjectAuthorizer(directory ProjectDirectory) *ProjectAuthorizer {
	return &ProjectAuthorizer{
		directory: directory,
		logger:    defLogger{},
	}
}

func (a *ProjectAuthorizer) WithLogger(logger Logger) *ProjectAuthorizer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// ResolveRole loads the project and computes the account's role on it.
// A missing project surfaces as the directory's not-found error, never as
// an authorization decision.
func (a *ProjectAuthorizer) ResolveRole(ctx context.Context, accountID, projectID uuid.UUID) (ProjectRole, error) {
	project, err := a.directory.FindProject(ctx, projectID)
	if err != nil {
		if errors.IsNotFound(err) {
			return RoleUnauthorized, err
		}
		return RoleUnauthorized, errors.Wrap(err, errors.CategoryInternal, "failed to load project for authorization")
	}

	return RoleForProject(project, accountID), nil
}

// Authorize resolves the account's role and applies the capability check.
// Unauthorized accounts are rejected regardless of the check; accounts with
// a role that fails the check are rejected with the same error so callers
// cannot distinguish "not on the team" from "insufficient role".
func (a *ProjectAuthorizer) Authorize(ctx context.Context, accountID, projectID uuid.UUID, allowed func(ProjectRole) bool) (ProjectRole, error) {
	role, err := a.ResolveRole(ctx, accountID, projectID)
	if err != nil {
		return role, err
	}

	if role == RoleUnauthorized || allowed == nil || !allowed(role) {
		a.logger.Debug(
			"project authorization rejected",
			"account", accountID.String(),
			"project", projectID.String(),
			"role", string(role),
		)
		return role, ErrProjectUnauthorized
	}

	return role, nil
}

// RoleForProject computes the role without touching the directory, for
// callers that already hold the membership record.
func RoleForProject(project *Project, accountID uuid.UUID) ProjectRole {
	if project == nil {
		return RoleUnauthorized
	}

	if project.OwnerID == accountID {
		return RoleOwner
	}

	if project.HasMember(accountID) {
		return RoleMember
	}

	return RoleUnauthorized
}
