package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppointmentStatus is the overall status of a rendez-vous.
type AppointmentStatus string

const (
	AppointmentPending    AppointmentStatus = "pending"
	AppointmentConfirmed  AppointmentStatus = "confirmed"
	AppointmentInProgress AppointmentStatus = "in_progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
)

// Terminal reports whether no further work happens on the appointment.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// ServiceStatus is the lifecycle status of one ServiceInstance.
type ServiceStatus string

const (
	ServicePending    ServiceStatus = "pending"
	ServiceInProgress ServiceStatus = "in_progress"
	ServiceCompleted  ServiceStatus = "completed"
	ServiceCancelled  ServiceStatus = "cancelled"
)

var serviceEdges = map[ServiceStatus][]ServiceStatus{
	ServicePending:    {ServiceInProgress, ServiceCancelled},
	ServiceInProgress: {ServiceCompleted, ServiceCancelled},
}

// CanTransition reports whether from -> to is an edge of the service state machine.
func CanTransition(from, to ServiceStatus) bool {
	for _, next := range serviceEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusHistory records the moment each status was first entered.
type StatusHistory map[ServiceStatus]time.Time

// AddOnNote describes a service added after the initial booking.
type AddOnNote struct {
	AddedBy string    `bson:"added_by" json:"added_by"`
	Reason  string    `bson:"reason,omitempty" json:"reason,omitempty"`
	AddedAt time.Time `bson:"added_at" json:"added_at"`
}

// ServiceInstance is the per-appointment occurrence of an offering. The
// offering name and prices are copied at booking time.
type ServiceInstance struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	OfferingID     primitive.ObjectID `bson:"offering_id" json:"offering_id"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	BaseLaborPrice float64            `bson:"base_labor_price" json:"base_labor_price"`
	LaborPrice     float64            `bson:"labor_price" json:"labor_price"`
	CurrentStatus  ServiceStatus      `bson:"current_status" json:"current_status"`
	History        StatusHistory      `bson:"history" json:"history"`
	CancelReason   string             `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	AddOn          *AddOnNote         `bson:"add_on,omitempty" json:"add_on,omitempty"`
}

// EffectiveDuration is Completed minus InProgress; ok is false unless both are stamped.
func (s ServiceInstance) EffectiveDuration() (time.Duration, bool) {
	started, ok := s.History[ServiceInProgress]
	if !ok {
		return 0, false
	}
	done, ok := s.History[ServiceCompleted]
	if !ok {
		return 0, false
	}
	return done.Sub(started), true
}

type Review struct {
	Rating    int       `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Appointment (rendez-vous) bundles service instances for one vehicle.
// Version is incremented on every write and guards concurrent transitions.
type Appointment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID    string             `bson:"client_id" json:"client_id"`
	Vehicle     Vehicle            `bson:"vehicle" json:"vehicle"`
	ScheduledAt time.Time          `bson:"scheduled_at" json:"scheduled_at"`
	Status      AppointmentStatus  `bson:"status" json:"status"`
	MechanicID  string             `bson:"mechanic_id,omitempty" json:"mechanic_id,omitempty"`
	Services    []ServiceInstance  `bson:"services" json:"services"`
	Review      *Review            `bson:"review,omitempty" json:"review,omitempty"`
	Version     int64              `bson:"version" json:"version"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Service returns the index of the instance with the given hex id, or -1.
func (a *Appointment) Service(instanceID string) int {
	for i := range a.Services {
		if a.Services[i].ID.Hex() == instanceID {
			return i
		}
	}
	return -1
}

// Progression is round(100 * completed / active), where active excludes
// cancelled instances. It is 0 when nothing is active.
func Progression(services []ServiceInstance) int {
	active, completed := 0, 0
	for _, s := range services {
		switch s.CurrentStatus {
		case ServiceCancelled:
			continue
		case ServiceCompleted:
			completed++
		}
		active++
	}
	if active == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(active)))
}

// SettleStatus recomputes the overall status after a service transition.
// Confirmation set by assignment is kept while no service is running.
func (a *Appointment) SettleStatus() {
	active, completed, running := 0, 0, 0
	for _, s := range a.Services {
		switch s.CurrentStatus {
		case ServiceCancelled:
			continue
		case ServiceCompleted:
			completed++
		case ServiceInProgress:
			running++
		}
		active++
	}

	switch {
	case len(a.Services) > 0 && active == 0:
		a.Status = AppointmentCancelled
	case active > 0 && completed == active:
		a.Status = AppointmentCompleted
	case running > 0 || completed > 0:
		a.Status = AppointmentInProgress
	case a.Status == AppointmentInProgress:
		if a.MechanicID != "" {
			a.Status = AppointmentConfirmed
		} else {
			a.Status = AppointmentPending
		}
	}
}

// Clone returns a deep copy, so callers may mutate it freely.
func (a Appointment) Clone() Appointment {
	out := a
	out.Services = make([]ServiceInstance, len(a.Services))
	for i, s := range a.Services {
		cp := s
		cp.History = make(StatusHistory, len(s.History))
		for k, v := range s.History {
			cp.History[k] = v
		}
		if s.AddOn != nil {
			note := *s.AddOn
			cp.AddOn = &note
		}
		out.Services[i] = cp
	}
	if a.Review != nil {
		r := *a.Review
		out.Review = &r
	}
	if a.Vehicle.TypeID != nil {
		id := *a.Vehicle.TypeID
		out.Vehicle.TypeID = &id
	}
	return out
}

// BookingRequest is the payload for POST /appointments. Either VehicleID
// references a registered vehicle or Vehicle describes it inline.
type BookingRequest struct {
	ClientID           string          `json:"client_id,omitempty"`
	VehicleID          string          `json:"vehicle_id,omitempty"`
	Vehicle            *VehicleRequest `json:"vehicle,omitempty"`
	DateTime           time.Time       `json:"date_time"`
	ServiceOfferingIDs []string        `json:"service_offering_ids"`
}

type AssignMechanicRequest struct {
	MechanicID string `json:"mechanic_id"`
}

type RescheduleRequest struct {
	NewDateTime time.Time `json:"new_date_time"`
}

type StartServiceRequest struct {
	ServiceInstanceID string `json:"service_instance_id,omitempty"`
}

type CancelServiceRequest struct {
	Reason string `json:"reason,omitempty"`
}

type AddServiceRequest struct {
	OfferingID string `json:"offering_id"`
	Reason     string `json:"reason,omitempty"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// AppointmentFilter narrows appointment listings. Zero fields match everything.
type AppointmentFilter struct {
	ClientID   string
	MechanicID string
	From       *time.Time
	To         *time.Time
}

// InstanceChange summarizes the instance touched by a transition.
type InstanceChange struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	PreviousStatus   ServiceStatus `json:"previous_status"`
	CurrentStatus    ServiceStatus `json:"current_status"`
	At               time.Time     `json:"at"`
	EffectiveMinutes *float64      `json:"effective_minutes,omitempty"`
	Reason           string        `json:"reason,omitempty"`
}

type TransitionResult struct {
	Appointment *Appointment   `json:"appointment"`
	Instance    InstanceChange `json:"instance"`
}

// InstanceTracking is the tracking view of one service instance.
type InstanceTracking struct {
	ServiceInstance
	ElapsedMinutes   *float64 `json:"elapsed_minutes,omitempty"`
	EffectiveMinutes *float64 `json:"effective_minutes,omitempty"`
}

type AppointmentTracking struct {
	ID          string             `json:"id"`
	Status      AppointmentStatus  `json:"status"`
	ScheduledAt time.Time          `json:"scheduled_at"`
	Vehicle     Vehicle            `json:"vehicle"`
	MechanicID  string             `json:"mechanic_id,omitempty"`
	Progression int                `json:"progression"`
	Services    []InstanceTracking `json:"services"`
	Review      *Review            `json:"review,omitempty"`
}

// AppointmentSummary is an appointment with its progression, for listings.
type AppointmentSummary struct {
	Appointment
	Progression int `json:"progression"`
}
