package domain

import "time"

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

type Tier string

const (
	TierMember    Tier = "MEMBER"
	TierNonMember Tier = "NON_MEMBER"
)

type User struct {
	ID            string
	Email         string
	Phone         string
	GovID         string
	Role          Role
	Tier          Tier
	EmailVerified bool
	PhoneVerified bool
	PasswordHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
