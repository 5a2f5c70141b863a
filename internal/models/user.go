package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the garage
type Role string

const (
	RoleClient   Role = "client"
	RoleMechanic Role = "mechanic"
	RoleManager  Role = "manager"
)

// User represents a user of the garage application
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims is the authenticated principal recovered from a token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsStaff reports whether the principal works at the garage.
func (c Claims) IsStaff() bool {
	return c.Role == RoleMechanic || c.Role == RoleManager
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleClient, RoleMechanic, RoleManager:
		return true
	default:
		return false
	}
}

// Actions checked by HasPermission.
const (
	ActionManageCatalog     = "manage_catalog"
	ActionManageUsers       = "manage_users"
	ActionAssignMechanic    = "assign_mechanic"
	ActionDriveServices     = "drive_services"
	ActionViewStats         = "view_stats"
	ActionViewMechanicStats = "view_mechanic_stats"
	ActionBookAppointment   = "book_appointment"
	ActionReschedule        = "reschedule_appointment"
	ActionReview            = "review_appointment"
	ActionRegisterVehicle   = "register_vehicle"
)

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleManager:
		return action != ActionReview
	case RoleMechanic:
		return action == ActionDriveServices || action == ActionViewMechanicStats ||
			action == ActionReschedule
	case RoleClient:
		return action == ActionBookAppointment || action == ActionReview ||
			action == ActionReschedule || action == ActionRegisterVehicle
	default:
		return false
	}
}
