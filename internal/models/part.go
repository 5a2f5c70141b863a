package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleRef identifies the catalog vehicle a compatibility row applies to.
type VehicleRef struct {
	ID    primitive.ObjectID `bson:"id,omitempty" json:"id,omitempty"`
	Make  string             `bson:"make" json:"make"`
	Model string             `bson:"model" json:"model"`
	Year  int                `bson:"year" json:"year"`
}

// StockLevel tracks quantity on hand against the alert threshold.
type StockLevel struct {
	Quantity       int `bson:"quantity" json:"quantity"`
	AlertThreshold int `bson:"alert_threshold" json:"alert_threshold"`
}

// Low reports whether the stock is at or below its alert threshold.
func (s StockLevel) Low() bool {
	return s.Quantity <= s.AlertThreshold
}

// Compatibility prices a part for one specific vehicle and tracks its stock.
type Compatibility struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Vehicle VehicleRef         `bson:"vehicle" json:"vehicle"`
	Price   float64            `bson:"price" json:"price"`
	Stock   StockLevel         `bson:"stock" json:"stock"`
}

// Variant prices a part by vehicle type tag. Stock is optional for variants.
type Variant struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	VehicleTypeTag string             `bson:"vehicle_type_tag" json:"vehicle_type_tag"`
	Price          float64            `bson:"price" json:"price"`
	Stock          *StockLevel        `bson:"stock,omitempty" json:"stock,omitempty"`
}

// Part is a spare part. Exactly one of Compatibilities or Variants is populated.
type Part struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Compatibilities []Compatibility    `bson:"compatibilities,omitempty" json:"compatibilities,omitempty"`
	Variants        []Variant          `bson:"variants,omitempty" json:"variants,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// SearchText flattens the compatible-vehicle descriptions of the part.
func (p Part) SearchText() string {
	labels := make([]string, 0, len(p.Compatibilities)+len(p.Variants))
	for _, c := range p.Compatibilities {
		labels = append(labels, Vehicle{Make: c.Vehicle.Make, Model: c.Vehicle.Model, Year: c.Vehicle.Year}.Label())
	}
	for _, v := range p.Variants {
		labels = append(labels, v.VehicleTypeTag)
	}
	return p.Name + " " + strings.Join(labels, ", ")
}

// PriceFor returns the price of the part for vehicle v, whose type name is
// typeName (catalog type or free text). ok is false when no row applies.
func (p Part) PriceFor(v Vehicle, typeName string) (price float64, ok bool) {
	for _, c := range p.Compatibilities {
		if v.Matches(c.Vehicle) {
			return c.Price, true
		}
	}
	if typeName == "" {
		return 0, false
	}
	for _, vr := range p.Variants {
		if strings.EqualFold(strings.TrimSpace(vr.VehicleTypeTag), strings.TrimSpace(typeName)) {
			return vr.Price, true
		}
	}
	return 0, false
}

// LowStockItem is one part row whose stock is at or below its threshold.
type LowStockItem struct {
	PartID         string      `json:"part_id"`
	PartName       string      `json:"part_name"`
	RowID          string      `json:"row_id"`
	Vehicle        *VehicleRef `json:"vehicle,omitempty"`
	VehicleTypeTag string      `json:"vehicle_type_tag,omitempty"`
	Price          float64     `json:"price"`
	StockQuantity  int         `json:"stock_quantity"`
	AlertThreshold int         `json:"alert_threshold"`
	OutOfStock     bool        `json:"out_of_stock"`
}

type LowStockReport struct {
	TotalAlert int            `json:"total_alert"`
	Items      []LowStockItem `json:"items"`
}

// PartRequest is the payload for creating a part.
type PartRequest struct {
	Name            string                 `json:"name"`
	Compatibilities []CompatibilityRequest `json:"compatibilities,omitempty"`
	Variants        []VariantRequest       `json:"variants,omitempty"`
}

type CompatibilityRequest struct {
	VehicleID      string  `json:"vehicle_id,omitempty"`
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	Year           int     `json:"year"`
	Price          float64 `json:"price"`
	StockQuantity  int     `json:"stock_quantity"`
	AlertThreshold int     `json:"alert_threshold"`
}

type VariantRequest struct {
	VehicleTypeTag string  `json:"vehicle_type_tag"`
	Price          float64 `json:"price"`
	StockQuantity  *int    `json:"stock_quantity,omitempty"`
	AlertThreshold *int    `json:"alert_threshold,omitempty"`
}

// StockUpdateRequest sets the quantity on hand of one compatibility or variant row.
type StockUpdateRequest struct {
	RowID    string `json:"row_id"`
	Quantity int    `json:"quantity"`
}
