package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the single system-wide role assigned to a user.
type Role string

const (
	RoleViewer        Role = "VIEWER"
	RoleInputter      Role = "INPUTTER"
	RoleApprover      Role = "APPROVER"
	RoleAdministrator Role = "ADMINISTRATOR"
)

func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleViewer:
		return RoleViewer, true
	case RoleInputter:
		return RoleInputter, true
	case RoleApprover:
		return RoleApprover, true
	case RoleAdministrator:
		return RoleAdministrator, true
	default:
		return "", false
	}
}

// CanInput reports whether the role may create and edit records.
func (r Role) CanInput() bool {
	return r == RoleInputter || r == RoleAdministrator
}

// CanReview reports whether the role may approve or reject submissions.
func (r Role) CanReview() bool {
	return r == RoleApprover || r == RoleAdministrator
}

func (r Role) IsAdministrator() bool {
	return r == RoleAdministrator
}

type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Username  string       `gorm:"not null;uniqueIndex" json:"username"`
	FullName  string       `gorm:"not null" json:"full_name"`
	Email     string       `gorm:"not null" json:"email"`
	Role      Role         `gorm:"not null" json:"role"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
