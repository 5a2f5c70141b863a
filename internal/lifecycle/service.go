// Package lifecycle drives appointments (rendez-vous) and their service
// instances from booking to review.
//
// Every operation loads the appointment, applies the change to that copy and
// writes it back with a version check, so a call either applies fully or not
// at all. Concurrent writers on the same appointment get apperr.ErrConflict
// and must reload before retrying.
package lifecycle

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/catalog"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/events"
	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service implements the appointment lifecycle.
type Service struct {
	appointments db.AppointmentCollection
	offerings    db.OfferingCollection
	users        db.UserCollection
	vehicles     *catalog.VehicleRegistry
	publisher    events.Publisher
	now          func() time.Time
}

type Option func(*Service)

// WithClock sets the time source used to stamp status history.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func NewService(store *db.Store, vehicles *catalog.VehicleRegistry, opts ...Option) *Service {
	s := &Service{
		appointments: store.Appointments,
		offerings:    store.Offerings,
		users:        store.Users,
		vehicles:     vehicles,
		publisher:    events.Nop{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book creates a pending appointment with one pending service instance per
// requested offering.
func (s *Service) Book(ctx context.Context, p models.Claims, req models.BookingRequest) (*models.Appointment, error) {
	clientID := req.ClientID
	if p.Role == models.RoleClient {
		if clientID != "" && clientID != p.UserID {
			return nil, apperr.Forbidden("clients can only book for themselves")
		}
		clientID = p.UserID
	}
	switch {
	case clientID == "":
		return nil, apperr.Validation("client id is required")
	case req.DateTime.IsZero():
		return nil, apperr.Validation("date and time are required")
	case len(req.ServiceOfferingIDs) == 0:
		return nil, apperr.Validation("select at least one service")
	}
	seen := make(map[string]bool, len(req.ServiceOfferingIDs))
	for _, id := range req.ServiceOfferingIDs {
		if seen[id] {
			return nil, apperr.Validation("service %s is selected twice", id)
		}
		seen[id] = true
	}

	vehicle, err := s.resolveVehicle(ctx, p, clientID, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appt := &models.Appointment{
		ClientID:    clientID,
		Vehicle:     *vehicle,
		ScheduledAt: req.DateTime,
		Status:      models.AppointmentPending,
		Services:    make([]models.ServiceInstance, 0, len(req.ServiceOfferingIDs)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, id := range req.ServiceOfferingIDs {
		instance, err := s.newInstance(ctx, id, vehicle, now)
		if err != nil {
			return nil, err
		}
		appt.Services = append(appt.Services, *instance)
	}

	if err := s.appointments.InsertAppointment(ctx, appt); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"appointment_id": appt.ID.Hex(),
		"client_id":      clientID,
		"services":       len(appt.Services),
	}).Info("Appointment booked")
	s.publish(ctx, events.Event{Type: events.AppointmentBooked, AppointmentID: appt.ID.Hex(), ActorID: p.UserID, To: string(appt.Status), At: now})
	return appt, nil
}

func (s *Service) resolveVehicle(ctx context.Context, p models.Claims, clientID string, req models.BookingRequest) (*models.Vehicle, error) {
	switch {
	case req.VehicleID != "":
		v, err := s.vehicles.Get(ctx, req.VehicleID)
		if err != nil {
			return nil, err
		}
		if v.ClientID != clientID {
			if p.Role == models.RoleClient {
				return nil, apperr.Forbidden("vehicle %s belongs to another client", req.VehicleID)
			}
			return nil, apperr.Validation("vehicle %s does not belong to client %s", req.VehicleID, clientID)
		}
		return v, nil
	case req.Vehicle != nil:
		return s.vehicles.Build(ctx, clientID, *req.Vehicle)
	default:
		return nil, apperr.Validation("a vehicle is required")
	}
}

// newInstance snapshots offering id priced for vehicle.
func (s *Service) newInstance(ctx context.Context, offeringID string, vehicle *models.Vehicle, now time.Time) (*models.ServiceInstance, error) {
	offering, err := s.offerings.FindOfferingByID(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	return &models.ServiceInstance{
		ID:             primitive.NewObjectID(),
		OfferingID:     offering.ID,
		Name:           offering.Name,
		Description:    offering.Description,
		BaseLaborPrice: offering.BaseLaborPrice,
		LaborPrice:     offering.LaborPriceFor(vehicle.TypeID),
		CurrentStatus:  models.ServicePending,
		History:        models.StatusHistory{models.ServicePending: now},
	}, nil
}

// Get returns one appointment. Clients only see their own.
func (s *Service) Get(ctx context.Context, p models.Claims, id string) (*models.Appointment, error) {
	appt, err := s.appointments.FindAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(p, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// ListQuery filters List. Query is matched word by word, ignoring case and
// accents, against status, client, mechanic, vehicle and service names.
type ListQuery struct {
	models.AppointmentFilter
	Query string
}

// List returns appointments visible to p with their progression.
func (s *Service) List(ctx context.Context, p models.Claims, q ListQuery) ([]models.AppointmentSummary, error) {
	filter := q.AppointmentFilter
	if p.Role == models.RoleClient {
		filter.ClientID = p.UserID
	}
	appts, err := s.appointments.FindAppointments(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]models.AppointmentSummary, 0, len(appts))
	for _, a := range appts {
		if q.Query != "" && !catalog.MatchWords(q.Query, searchText(a)) {
			continue
		}
		out = append(out, models.AppointmentSummary{Appointment: a, Progression: models.Progression(a.Services)})
	}
	return out, nil
}

// MechanicAppointments lists the appointments assigned to the calling mechanic.
func (s *Service) MechanicAppointments(ctx context.Context, p models.Claims) ([]models.AppointmentSummary, error) {
	if p.Role != models.RoleMechanic {
		return nil, apperr.Forbidden("only mechanics have assigned appointments")
	}
	return s.List(ctx, p, ListQuery{AppointmentFilter: models.AppointmentFilter{MechanicID: p.UserID}})
}

// Tracking returns the per-service progress of an appointment.
func (s *Service) Tracking(ctx context.Context, p models.Claims, id string) (*models.AppointmentTracking, error) {
	appt, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t := &models.AppointmentTracking{
		ID:          appt.ID.Hex(),
		Status:      appt.Status,
		ScheduledAt: appt.ScheduledAt,
		Vehicle:     appt.Vehicle,
		MechanicID:  appt.MechanicID,
		Progression: models.Progression(appt.Services),
		Services:    make([]models.InstanceTracking, 0, len(appt.Services)),
		Review:      appt.Review,
	}
	for _, inst := range appt.Services {
		it := models.InstanceTracking{ServiceInstance: inst}
		if d, ok := inst.EffectiveDuration(); ok {
			it.EffectiveMinutes = minutes(d)
		} else if started, ok := inst.History[models.ServiceInProgress]; ok && inst.CurrentStatus == models.ServiceInProgress {
			it.ElapsedMinutes = minutes(now.Sub(started))
		}
		t.Services = append(t.Services, it)
	}
	return t, nil
}

func searchText(a models.Appointment) string {
	parts := []string{string(a.Status), a.ClientID, a.MechanicID, a.Vehicle.Label()}
	for _, inst := range a.Services {
		parts = append(parts, inst.Name)
	}
	return strings.Join(parts, " ")
}

func canView(p models.Claims, a *models.Appointment) error {
	if p.Role == models.RoleClient && a.ClientID != p.UserID {
		return apperr.Forbidden("appointment %s belongs to another client", a.ID.Hex())
	}
	return nil
}

// canDrive allows the manager and the assigned mechanic to move services.
func canDrive(p models.Claims, a *models.Appointment) error {
	switch p.Role {
	case models.RoleManager:
		return nil
	case models.RoleMechanic:
		if a.MechanicID == p.UserID {
			return nil
		}
		return apperr.Forbidden("appointment %s is not assigned to you", a.ID.Hex())
	default:
		return apperr.Forbidden("only garage staff can update services")
	}
}

// minutes rounds d to a tenth of a minute.
func minutes(d time.Duration) *float64 {
	m := math.Round(d.Minutes()*10) / 10
	return &m
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).WithFields(log.Fields{"event": e.Type, "appointment_id": e.AppointmentID}).Error("Failed to publish event")
	}
}
