package lifecycle

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/events"
	"github.com/ukydev/garage-service/internal/models"
)

// errUnchanged tells update that fn made no change to persist.
var errUnchanged = errors.New("unchanged")

// update loads appointment id, applies fn and writes the result back with
// a version check. Nothing is written when fn fails.
func (s *Service) update(ctx context.Context, id string, fn func(a *models.Appointment) error) (*models.Appointment, error) {
	appt, err := s.appointments.FindAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(appt); err != nil {
		if errors.Is(err, errUnchanged) {
			return appt, nil
		}
		return nil, err
	}
	if err := s.appointments.ReplaceAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// AssignMechanic assigns a mechanic and confirms the appointment. An
// appointment already in progress keeps its status.
func (s *Service) AssignMechanic(ctx context.Context, p models.Claims, id string, req models.AssignMechanicRequest) (*models.Appointment, error) {
	if req.MechanicID == "" {
		return nil, apperr.Validation("mechanic id is required")
	}
	mechanic, err := s.users.FindUserByID(ctx, req.MechanicID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrValidation) {
			return nil, apperr.Validation("unknown mechanic %q", req.MechanicID)
		}
		return nil, err
	}
	if mechanic.Role != models.RoleMechanic {
		return nil, apperr.Validation("user %s is not a mechanic", req.MechanicID)
	}

	var from models.AppointmentStatus
	appt, err := s.update(ctx, id, func(a *models.Appointment) error {
		if a.Status.Terminal() {
			return apperr.InvalidState("cannot assign a mechanic to a %s appointment", a.Status)
		}
		from = a.Status
		a.MechanicID = req.MechanicID
		if a.Status != models.AppointmentInProgress {
			a.Status = models.AppointmentConfirmed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"appointment_id": id,
		"mechanic_id":    req.MechanicID,
		"from":           from,
		"to":             appt.Status,
	}).Info("Mechanic assigned")
	s.publish(ctx, events.Event{Type: events.AppointmentAssigned, AppointmentID: id, ActorID: p.UserID, From: string(from), To: string(appt.Status), At: s.now()})
	return appt, nil
}

// Reschedule moves the appointment and revokes any confirmation.
func (s *Service) Reschedule(ctx context.Context, p models.Claims, id string, req models.RescheduleRequest) (*models.Appointment, error) {
	if req.NewDateTime.IsZero() {
		return nil, apperr.Validation("the new date and time are required")
	}
	var from models.AppointmentStatus
	appt, err := s.update(ctx, id, func(a *models.Appointment) error {
		if err := canReschedule(p, a); err != nil {
			return err
		}
		switch a.Status {
		case models.AppointmentCompleted, models.AppointmentCancelled:
			return apperr.InvalidState("cannot reschedule a %s appointment", a.Status)
		case models.AppointmentInProgress:
			return apperr.InvalidState("cannot reschedule an appointment whose services have started")
		}
		from = a.Status
		a.ScheduledAt = req.NewDateTime
		a.Status = models.AppointmentPending
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"appointment_id": id,
		"scheduled_at":   req.NewDateTime,
		"from":           from,
		"to":             appt.Status,
	}).Info("Appointment rescheduled")
	s.publish(ctx, events.Event{Type: events.AppointmentRescheduled, AppointmentID: id, ActorID: p.UserID, From: string(from), To: string(appt.Status), At: s.now()})
	return appt, nil
}

func canReschedule(p models.Claims, a *models.Appointment) error {
	if p.Role == models.RoleClient {
		return canView(p, a)
	}
	return canDrive(p, a)
}

// Start moves a service to in progress. With no instance id the first
// pending instance, in stored order, is started. Starting an instance that
// is already in progress changes nothing but is still reported.
func (s *Service) Start(ctx context.Context, p models.Claims, id string, req models.StartServiceRequest) (*models.TransitionResult, error) {
	var change models.InstanceChange
	appt, err := s.update(ctx, id, func(a *models.Appointment) error {
		if err := canDrive(p, a); err != nil {
			return err
		}
		i := -1
		if req.ServiceInstanceID == "" {
			for j := range a.Services {
				if a.Services[j].CurrentStatus == models.ServicePending {
					i = j
					break
				}
			}
			if i < 0 {
				return apperr.InvalidState("no pending service to start")
			}
		} else if i = a.Service(req.ServiceInstanceID); i < 0 {
			return apperr.NotFound("service instance", req.ServiceInstanceID)
		}

		inst := &a.Services[i]
		if inst.CurrentStatus == models.ServiceInProgress {
			change = s.change(inst, inst.CurrentStatus)
			change.At = inst.History[models.ServiceInProgress]
			return errUnchanged
		}
		var err error
		change, err = s.transition(a, inst, models.ServiceInProgress)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.report(ctx, p, appt, change, events.ServiceStarted)
	return &models.TransitionResult{Appointment: appt, Instance: change}, nil
}

// Complete finishes an in-progress service.
func (s *Service) Complete(ctx context.Context, p models.Claims, id, instanceID string) (*models.TransitionResult, error) {
	var change models.InstanceChange
	appt, err := s.update(ctx, id, func(a *models.Appointment) error {
		if err := canDrive(p, a); err != nil {
			return err
		}
		i := a.Service(instanceID)
		if i < 0 {
			return apperr.NotFound("service instance", instanceID)
		}
		inst := &a.Services[i]
		if inst.CurrentStatus != models.ServiceInProgress {
			return apperr.InvalidState("service %q is %s, only a service in progress can be completed", inst.Name, inst.CurrentStatus)
		}
		var err error
		change, err = s.transition(a, inst, models.ServiceCompleted)
		if err == nil {
			if d, ok := inst.EffectiveDuration(); ok {
				change.EffectiveMinutes = minutes(d)
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.report(ctx, p, appt, change, events.ServiceCompleted)
	return &models.TransitionResult{Appointment: appt, Instance: change}, nil
}

// Cancel cancels a pending or in-progress service with an optional reason.
func (s *Service) Cancel(ctx context.Context, p models.Claims, id, instanceID string, req models.CancelServiceRequest) (*models.TransitionResult, error) {
	reason := strings.TrimSpace(req.Reason)
	var change models.InstanceChange
	appt, err := s.update(ctx, id, func(a *models.Appointment) error {
		if err := canDrive(p, a); err != nil {
			return err
		}
		i := a.Service(instanceID)
		if i < 0 {
			return apperr.NotFound("service instance", instanceID)
		}
		inst := &a.Services[i]
		if !models.CanTransition(inst.CurrentStatus, models.ServiceCancelled) {
			return apperr.InvalidState("service %q is already %s and cannot be cancelled", inst.Name, inst.CurrentStatus)
		}
		var err error
		if change, err = s.transition(a, inst, models.ServiceCancelled); err != nil {
			return err
		}
		inst.CancelReason = reason
		change.Reason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.report(ctx, p, appt, change, events.ServiceCancelled)
	return &models.TransitionResult{Appointment: appt, Instance: change}, nil
}

// AddService appends a pending service to a booked appointment on behalf
// of the staff member p. The overall status is left unchanged.
func (s *Service) AddService(ctx context.Context, p models.Claims, id string, req models.AddServiceRequest) (*models.TransitionResult, error) {
	if req.OfferingID == "" {
		return nil, apperr.Validation("offering id is required")
	}
	var change models.InstanceChange
	appt, err := s.update(ctx, id, func(a *models.Appointment) error {
		if err := canDrive(p, a); err != nil {
			return err
		}
		if a.Status.Terminal() {
			return apperr.InvalidState("cannot add a service to a %s appointment", a.Status)
		}
		now := s.now()
		inst, err := s.newInstance(ctx, req.OfferingID, &a.Vehicle, now)
		if err != nil {
			return err
		}
		inst.AddOn = &models.AddOnNote{AddedBy: p.UserID, Reason: strings.TrimSpace(req.Reason), AddedAt: now}
		a.Services = append(a.Services, *inst)
		change = s.change(inst, "")
		change.At = now
		change.Reason = inst.AddOn.Reason
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.report(ctx, p, appt, change, events.ServiceAdded)
	return &models.TransitionResult{Appointment: appt, Instance: change}, nil
}

// Review records the client's rating of a completed appointment. A later
// review replaces the earlier one.
func (s *Service) Review(ctx context.Context, p models.Claims, id string, req models.ReviewRequest) (*models.Appointment, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	appt, err := s.update(ctx, id, func(a *models.Appointment) error {
		if p.Role != models.RoleClient || a.ClientID != p.UserID {
			return apperr.Forbidden("only the client of appointment %s can review it", a.ID.Hex())
		}
		if a.Status != models.AppointmentCompleted {
			return apperr.InvalidState("appointment must be completed before it can be reviewed")
		}
		now := s.now()
		review := &models.Review{Rating: req.Rating, Comment: strings.TrimSpace(req.Comment), CreatedAt: now, UpdatedAt: now}
		if a.Review != nil {
			review.CreatedAt = a.Review.CreatedAt
		}
		a.Review = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"appointment_id": id, "rating": req.Rating}).Info("Appointment reviewed")
	s.publish(ctx, events.Event{Type: events.AppointmentReviewed, AppointmentID: id, ActorID: p.UserID, At: s.now()})
	return appt, nil
}

// transition moves inst to next, stamping the first entry time, and
// recomputes the appointment status.
func (s *Service) transition(a *models.Appointment, inst *models.ServiceInstance, next models.ServiceStatus) (models.InstanceChange, error) {
	if !models.CanTransition(inst.CurrentStatus, next) {
		return models.InstanceChange{}, apperr.InvalidState("service %q cannot go from %s to %s", inst.Name, inst.CurrentStatus, next)
	}
	prev := inst.CurrentStatus
	now := s.now()
	if inst.History == nil {
		inst.History = models.StatusHistory{}
	}
	if _, seen := inst.History[next]; !seen {
		inst.History[next] = now
	}
	inst.CurrentStatus = next
	a.SettleStatus()

	change := s.change(inst, prev)
	change.At = now
	return change, nil
}

func (s *Service) change(inst *models.ServiceInstance, prev models.ServiceStatus) models.InstanceChange {
	return models.InstanceChange{
		ID:             inst.ID.Hex(),
		Name:           inst.Name,
		PreviousStatus: prev,
		CurrentStatus:  inst.CurrentStatus,
	}
}

func (s *Service) report(ctx context.Context, p models.Claims, a *models.Appointment, change models.InstanceChange, eventType string) {
	log.WithFields(log.Fields{
		"appointment_id": a.ID.Hex(),
		"instance_id":    change.ID,
		"from":           change.PreviousStatus,
		"to":             change.CurrentStatus,
		"status":         a.Status,
		"progression":    models.Progression(a.Services),
	}).Info("Service status changed")
	s.publish(ctx, events.Event{
		Type:          eventType,
		AppointmentID: a.ID.Hex(),
		InstanceID:    change.ID,
		From:          string(change.PreviousStatus),
		To:            string(change.CurrentStatus),
		ActorID:       p.UserID,
		Reason:        change.Reason,
		At:            change.At,
	})
}
