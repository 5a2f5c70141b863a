package models

import "time"

// StatusCounts is the appointment status histogram.
type StatusCounts struct {
	Pending    int `json:"pending"`
	Confirmed  int `json:"confirmed"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

type GeneralStats struct {
	Appointments      StatusCounts `json:"appointments"`
	TotalAppointments int          `json:"total_appointments"`
	TodayAppointments int          `json:"today_appointments"`
	CompletionRate    int          `json:"completion_rate"`
	AverageRating     *float64     `json:"average_rating"`
	Stars             int          `json:"stars"`
	TotalReviews      int          `json:"total_reviews"`
	TotalClients      int          `json:"total_clients"`
	TotalMechanics    int          `json:"total_mechanics"`
	TotalVehicles     int          `json:"total_vehicles"`
	TotalParts        int          `json:"total_parts"`
	LowStockCount     int          `json:"low_stock_count"`
	ComputedAt        time.Time    `json:"computed_at"`
}

// TopOffering is one bar of the most-requested offerings chart.
type TopOffering struct {
	OfferingID string  `json:"offering_id"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	LaborPrice float64 `json:"labor_price"`
}

type RevenueReport struct {
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	Total            float64   `json:"total"`
	ServiceCount     int       `json:"service_count"`
	AppointmentCount int       `json:"appointment_count"`
	Warning          string    `json:"warning"`
}

type MechanicStats struct {
	MechanicID            string  `json:"mechanic_id"`
	AppointmentsToday     int     `json:"appointments_today"`
	AppointmentsActive    int     `json:"appointments_in_progress"`
	AppointmentsCompleted int     `json:"appointments_completed"`
	AppointmentsTotal     int     `json:"appointments_total"`
	ServicesTotal         int     `json:"services_total"`
	ServicesCompleted     int     `json:"services_completed"`
	ServicesInProgress    int     `json:"services_in_progress"`
	CompletionRate        int     `json:"completion_rate"`
	MinutesWorked         float64 `json:"minutes_worked"`
	HoursWorked           float64 `json:"hours_worked"`
	AverageMinutes        float64 `json:"average_minutes_per_service"`
}
