package project

import "github.com/superemem/azwaryfocus/internal/domain/board"

// Role is the user's relation to a listed project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Summary is a project as listed for one user.
type Summary struct {
	board.Project
	Role Role `json:"role"`
}
