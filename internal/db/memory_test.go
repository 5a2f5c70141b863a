package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemory_ReplaceAppointmentVersioning(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	appt := &models.Appointment{ClientID: "c1", Status: models.AppointmentPending}
	require.NoError(t, m.InsertAppointment(ctx, appt))
	assert.Equal(t, int64(1), appt.Version)

	first, err := m.FindAppointmentByID(ctx, appt.ID.Hex())
	require.NoError(t, err)
	second, err := m.FindAppointmentByID(ctx, appt.ID.Hex())
	require.NoError(t, err)

	first.Status = models.AppointmentConfirmed
	require.NoError(t, m.ReplaceAppointment(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Status = models.AppointmentCancelled
	err = m.ReplaceAppointment(ctx, second)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := m.FindAppointmentByID(ctx, appt.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, stored.Status)
}

func TestMemory_ReplaceUnknownAppointment(t *testing.T) {
	m := NewMemory()
	err := m.ReplaceAppointment(context.Background(), &models.Appointment{ID: primitive.NewObjectID()})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_FindErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.FindPartByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = m.FindPartByID(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = m.DeleteOffering(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	appt := &models.Appointment{
		Services: []models.ServiceInstance{{
			ID:            primitive.NewObjectID(),
			CurrentStatus: models.ServicePending,
			History:       models.StatusHistory{},
		}},
	}
	require.NoError(t, m.InsertAppointment(ctx, appt))

	got, err := m.FindAppointmentByID(ctx, appt.ID.Hex())
	require.NoError(t, err)
	got.Services[0].CurrentStatus = models.ServiceCompleted
	got.Services[0].History[models.ServiceCompleted] = got.CreatedAt

	again, err := m.FindAppointmentByID(ctx, appt.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.ServicePending, again.Services[0].CurrentStatus)
	assert.Empty(t, again.Services[0].History)
}

func TestMemory_PullCandidatePart(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	keep, gone := primitive.NewObjectID(), primitive.NewObjectID()

	withPart := &models.ServiceOffering{Name: "Freinage", Steps: []models.RepairStep{
		{Order: 1, Label: "Démontage", CandidatePartIDs: []primitive.ObjectID{keep, gone}},
		{Order: 2, Label: "Remontage", CandidatePartIDs: []primitive.ObjectID{gone}},
	}}
	without := &models.ServiceOffering{Name: "Vidange", Steps: []models.RepairStep{
		{Order: 1, Label: "Vidange", CandidatePartIDs: []primitive.ObjectID{keep}},
	}}
	require.NoError(t, m.InsertOffering(ctx, withPart))
	require.NoError(t, m.InsertOffering(ctx, without))

	changed, err := m.PullCandidatePart(ctx, gone)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	got, err := m.FindOfferingByID(ctx, withPart.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{keep}, got.Steps[0].CandidatePartIDs)
	assert.Empty(t, got.Steps[1].CandidatePartIDs)

	changed, err = m.PullCandidatePart(ctx, gone)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestMemory_FindAppointmentsFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := mustTime(t, "2026-03-02T09:00:00Z")

	for i, row := range []struct{ client, mechanic string }{
		{"c1", "m1"}, {"c1", ""}, {"c2", "m1"},
	} {
		require.NoError(t, m.InsertAppointment(ctx, &models.Appointment{
			ClientID:    row.client,
			MechanicID:  row.mechanic,
			ScheduledAt: base.AddDate(0, 0, 2-i),
		}))
	}

	byClient, err := m.FindAppointments(ctx, models.AppointmentFilter{ClientID: "c1"})
	require.NoError(t, err)
	require.Len(t, byClient, 2)
	assert.True(t, byClient[0].ScheduledAt.Before(byClient[1].ScheduledAt))

	byMechanic, err := m.FindAppointments(ctx, models.AppointmentFilter{MechanicID: "m1"})
	require.NoError(t, err)
	assert.Len(t, byMechanic, 2)

	from := base.AddDate(0, 0, 1)
	windowed, err := m.FindAppointments(ctx, models.AppointmentFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, windowed, 2)
}

func TestMemory_Users(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	user := &models.User{Email: " Alice@Garage.test ", Role: models.RoleMechanic}
	require.NoError(t, m.InsertUser(ctx, user))
	assert.True(t, user.IsActive)

	err := m.InsertUser(ctx, &models.User{Email: "alice@garage.test", Role: models.RoleClient})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	found, err := m.FindUserByEmail(ctx, "ALICE@garage.test")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	require.NoError(t, m.UpdateLastLogin(ctx, user.ID.Hex()))
	found, err = m.FindUserByID(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.NotNil(t, found.LastLogin)

	mechanics, err := m.FindUsers(ctx, models.RoleMechanic)
	require.NoError(t, err)
	assert.Len(t, mechanics, 1)
	clients, err := m.FindUsers(ctx, models.RoleClient)
	require.NoError(t, err)
	assert.Empty(t, clients)

	require.NoError(t, m.DeleteUser(ctx, user.ID.Hex()))
	assert.ErrorIs(t, m.DeleteUser(ctx, user.ID.Hex()), apperr.ErrNotFound)
}

func TestMemory_VehicleTypeUniqueName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.InsertVehicleType(ctx, &models.VehicleType{Name: "SUV"}))
	err := m.InsertVehicleType(ctx, &models.VehicleType{Name: "suv"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}
