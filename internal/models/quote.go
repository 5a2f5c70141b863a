package models

import "time"

// QuoteRequest asks for a price estimate. VehicleTypeID may replace VehicleID
// when the vehicle is not registered.
type QuoteRequest struct {
	VehicleID     string   `json:"vehicle_id,omitempty"`
	VehicleTypeID string   `json:"vehicle_type_id,omitempty"`
	OfferingIDs   []string `json:"offering_ids"`
}

// QuotePart is an informational part price; it is not included in Quote.Total.
type QuotePart struct {
	PartID    string  `json:"part_id"`
	Name      string  `json:"name"`
	StepOrder int     `json:"step_order"`
	StepLabel string  `json:"step_label"`
	Price     float64 `json:"price"`
}

type QuoteLine struct {
	OfferingID     string      `json:"offering_id"`
	Name           string      `json:"name"`
	BaseLaborPrice float64     `json:"base_labor_price"`
	Supplement     float64     `json:"supplement"`
	LaborPrice     float64     `json:"labor_price"`
	Parts          []QuotePart `json:"parts"`
}

// Quote (devis) for one vehicle. Total sums labor prices only.
type Quote struct {
	Vehicle     *Vehicle     `json:"vehicle,omitempty"`
	VehicleType *VehicleType `json:"vehicle_type,omitempty"`
	Lines       []QuoteLine  `json:"lines"`
	Total       float64      `json:"total"`
	PartsTotal  float64      `json:"parts_total"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// QuoteOptions lists what a caller may put in a quote request.
type QuoteOptions struct {
	Vehicles     []Vehicle         `json:"vehicles"`
	VehicleTypes []VehicleType     `json:"vehicle_types"`
	Offerings    []ServiceOffering `json:"offerings"`
}
