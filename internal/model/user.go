package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles on the platform
const (
	RoleStudent = "student"
	RoleAlumni  = "alumni"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

// User represents a member document in MongoDB. It is owned by the profile
// service; this service only reads it.
type User struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID     string             `json:"userId" bson:"user_id"`
	Name       string             `json:"name" bson:"name"`
	Email      string             `json:"email" bson:"email"`
	Role       string             `json:"role" bson:"role"`
	Department string             `json:"department" bson:"department"`
	Avatar     string             `json:"avatar" bson:"avatar"`
	IsActive   bool               `json:"isActive" bson:"is_active"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt  *time.Time         `json:"updatedAt" bson:"updated_at"`
}
