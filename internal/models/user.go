package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleLecturer UserRole = "lecturer"
	RoleStudent  UserRole = "student"
)

// User is an account able to open a session. RelatedID links lecturer and
// student accounts to their Lecturer or Student record.
type User struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	FullName  string   `json:"fullName"`
	Role      UserRole `json:"role"`
	RelatedID string   `json:"relatedId,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
