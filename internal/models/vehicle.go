package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleType classifies vehicles for labor-supplement lookup ("SUV", "Utilitaire"...).
type VehicleType struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Vehicle is a client vehicle. TypeID references a VehicleType; when no
// catalog type matches, TypeOther holds a free-text description instead.
type Vehicle struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ClientID  string              `bson:"client_id" json:"client_id"`
	Make      string              `bson:"make" json:"make"`
	Model     string              `bson:"model" json:"model"`
	Year      int                 `bson:"year" json:"year"`
	TypeID    *primitive.ObjectID `bson:"type_id,omitempty" json:"type_id,omitempty"`
	TypeOther string              `bson:"type_other,omitempty" json:"type_other,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}

// Label renders the vehicle as "make model (year)".
func (v Vehicle) Label() string {
	return fmt.Sprintf("%s %s (%d)", v.Make, v.Model, v.Year)
}

// Matches reports whether ref describes the same make, model and year.
func (v Vehicle) Matches(ref VehicleRef) bool {
	return strings.EqualFold(strings.TrimSpace(v.Make), strings.TrimSpace(ref.Make)) &&
		strings.EqualFold(strings.TrimSpace(v.Model), strings.TrimSpace(ref.Model)) &&
		v.Year == ref.Year
}

// VehicleRequest is the payload for registering a vehicle.
type VehicleRequest struct {
	ClientID  string `json:"client_id,omitempty"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	Year      int    `json:"year"`
	TypeID    string `json:"type_id,omitempty"`
	TypeOther string `json:"type_other,omitempty"`
}

type VehicleTypeRequest struct {
	Name string `json:"name"`
}
