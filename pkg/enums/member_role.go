package enums

// MemberRole partitions the authenticated surface between customers and staff.
type MemberRole string

const (
	MemberRoleUser  MemberRole = "user"
	MemberRoleAdmin MemberRole = "admin"
)

func (r MemberRole) IsValid() bool {
	switch r {
	case MemberRoleUser, MemberRoleAdmin:
		return true
	}
	return false
}
