package model

// UserRole 用户角色，用户实体本身由认证服务维护
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

func (r UserRole) CanSeeAllResults() bool {
	return r == Admin || r == Teacher
}
