package stats

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/catalog"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/models"
)

// Service loads snapshots from the store and derives the dashboards.
type Service struct {
	store *db.Store
	now   func() time.Time
}

func NewService(store *db.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// General returns the manager dashboard figures.
func (s *Service) General(ctx context.Context) (*models.GeneralStats, error) {
	appts, err := s.store.Appointments.FindAppointments(ctx, models.AppointmentFilter{})
	if err != nil {
		return nil, err
	}
	parts, err := s.store.Parts.FindParts(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := s.store.Users.FindUsers(ctx, models.RoleClient)
	if err != nil {
		return nil, err
	}
	mechanics, err := s.store.Users.FindUsers(ctx, models.RoleMechanic)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.store.Vehicles.FindVehicles(ctx, "")
	if err != nil {
		return nil, err
	}

	now := s.now()
	counts := Histogram(appts)
	avg, stars, reviews := Ratings(appts)
	out := &models.GeneralStats{
		Appointments:      counts,
		TotalAppointments: len(appts),
		TodayAppointments: ScheduledOn(appts, now),
		CompletionRate:    Percent(counts.Completed, len(appts)),
		AverageRating:     avg,
		Stars:             stars,
		TotalReviews:      reviews,
		TotalClients:      len(clients),
		TotalMechanics:    len(mechanics),
		TotalVehicles:     len(vehicles),
		TotalParts:        len(parts),
		LowStockCount:     len(catalog.LowStockRows(parts)),
		ComputedAt:        now,
	}
	log.WithFields(log.Fields{"appointments": out.TotalAppointments, "low_stock": out.LowStockCount}).Debug("General stats computed")
	return out, nil
}

// TopOfferings returns the n most requested offerings.
func (s *Service) TopOfferings(ctx context.Context, n int) ([]models.TopOffering, error) {
	appts, err := s.store.Appointments.FindAppointments(ctx, models.AppointmentFilter{})
	if err != nil {
		return nil, err
	}
	offerings, err := s.store.Offerings.FindOfferings(ctx)
	if err != nil {
		return nil, err
	}
	return TopOfferings(appts, offerings, n), nil
}

// Revenue reports the labor revenue of appointments scheduled in [from, to].
func (s *Service) Revenue(ctx context.Context, from, to time.Time) (*models.RevenueReport, error) {
	if from.IsZero() || to.IsZero() {
		return nil, apperr.Validation("both from and to dates are required")
	}
	if to.Before(from) {
		return nil, apperr.Validation("the end of the period is before its start")
	}
	appts, err := s.store.Appointments.FindAppointments(ctx, models.AppointmentFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	report := Revenue(appts, from, to)
	return &report, nil
}

// Mechanic returns the throughput of mechanicID. Mechanics may only read
// their own figures.
func (s *Service) Mechanic(ctx context.Context, p models.Claims, mechanicID string) (*models.MechanicStats, error) {
	switch p.Role {
	case models.RoleManager:
	case models.RoleMechanic:
		if p.UserID != mechanicID {
			return nil, apperr.Forbidden("mechanics can only read their own statistics")
		}
	default:
		return nil, apperr.Forbidden("only garage staff can read mechanic statistics")
	}
	user, err := s.store.Users.FindUserByID(ctx, mechanicID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleMechanic {
		return nil, apperr.NotFound("mechanic", mechanicID)
	}
	appts, err := s.store.Appointments.FindAppointments(ctx, models.AppointmentFilter{MechanicID: mechanicID})
	if err != nil {
		return nil, err
	}
	st := ForMechanic(mechanicID, appts, s.now())
	return &st, nil
}
