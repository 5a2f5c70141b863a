package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RepairStep is one ordered step of an offering. Order is dense 1..N.
type RepairStep struct {
	Order            int                  `bson:"order" json:"order"`
	Label            string               `bson:"label" json:"label"`
	CandidatePartIDs []primitive.ObjectID `bson:"candidate_part_ids" json:"candidate_part_ids"`
}

// LaborSupplement adds Amount to the base labor price for one vehicle type.
type LaborSupplement struct {
	VehicleTypeID primitive.ObjectID `bson:"vehicle_type_id" json:"vehicle_type_id"`
	Amount        float64            `bson:"amount" json:"amount"`
}

// ServiceOffering is a catalog service (prestation) such as an oil change.
type ServiceOffering struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description" json:"description"`
	BaseLaborPrice float64            `bson:"base_labor_price" json:"base_labor_price"`
	Steps          []RepairStep       `bson:"steps" json:"steps"`
	Supplements    []LaborSupplement  `bson:"supplements" json:"supplements"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// SupplementFor returns the supplement amount for typeID, or 0.
func (o ServiceOffering) SupplementFor(typeID *primitive.ObjectID) float64 {
	if typeID == nil {
		return 0
	}
	for _, s := range o.Supplements {
		if s.VehicleTypeID == *typeID {
			return s.Amount
		}
	}
	return 0
}

// LaborPriceFor is the base labor price plus the supplement matching typeID.
func (o ServiceOffering) LaborPriceFor(typeID *primitive.ObjectID) float64 {
	return o.BaseLaborPrice + o.SupplementFor(typeID)
}

// OfferingRequest is the payload for creating or updating an offering.
type OfferingRequest struct {
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	BaseLaborPrice float64             `json:"base_labor_price"`
	Steps          []RepairStepRequest `json:"steps"`
	Supplements    []SupplementRequest `json:"supplements"`
}

type RepairStepRequest struct {
	Label            string   `json:"label"`
	CandidatePartIDs []string `json:"candidate_part_ids"`
}

type SupplementRequest struct {
	VehicleTypeID string  `json:"vehicle_type_id"`
	Amount        float64 `json:"amount"`
}
