package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func services(statuses ...ServiceStatus) []ServiceInstance {
	out := make([]ServiceInstance, len(statuses))
	for i, s := range statuses {
		out[i] = ServiceInstance{ID: primitive.NewObjectID(), CurrentStatus: s, History: StatusHistory{}}
	}
	return out
}

func TestCanTransition(t *testing.T) {
	all := []ServiceStatus{ServicePending, ServiceInProgress, ServiceCompleted, ServiceCancelled}
	legal := map[[2]ServiceStatus]bool{
		{ServicePending, ServiceInProgress}:   true,
		{ServicePending, ServiceCancelled}:    true,
		{ServiceInProgress, ServiceCompleted}: true,
		{ServiceInProgress, ServiceCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]ServiceStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestProgression(t *testing.T) {
	tests := []struct {
		name     string
		services []ServiceInstance
		expected int
	}{
		{"empty", nil, 0},
		{"all cancelled", services(ServiceCancelled, ServiceCancelled), 0},
		{"none done", services(ServicePending, ServiceInProgress), 0},
		{"half done", services(ServiceCompleted, ServicePending), 50},
		{"cancelled ignored", services(ServiceCompleted, ServiceCancelled), 100},
		{"rounded", services(ServiceCompleted, ServicePending, ServicePending), 33},
		{"rounded up", services(ServiceCompleted, ServiceCompleted, ServicePending), 67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Progression(tt.services))
			assert.Equal(t, tt.expected, Progression(tt.services))
		})
	}
}

func TestSettleStatus(t *testing.T) {
	tests := []struct {
		name     string
		start    AppointmentStatus
		mechanic string
		services []ServiceInstance
		expected AppointmentStatus
	}{
		{"pending stays pending", AppointmentPending, "", services(ServicePending, ServiceCancelled), AppointmentPending},
		{"confirmed stays confirmed", AppointmentConfirmed, "m1", services(ServicePending, ServiceCancelled), AppointmentConfirmed},
		{"running", AppointmentConfirmed, "m1", services(ServiceInProgress, ServicePending), AppointmentInProgress},
		{"partly done", AppointmentInProgress, "m1", services(ServiceCompleted, ServicePending), AppointmentInProgress},
		{"all done", AppointmentInProgress, "m1", services(ServiceCompleted, ServiceCancelled), AppointmentCompleted},
		{"all cancelled", AppointmentConfirmed, "m1", services(ServiceCancelled, ServiceCancelled), AppointmentCancelled},
		{"running cancelled back to confirmed", AppointmentInProgress, "m1", services(ServiceCancelled, ServicePending), AppointmentConfirmed},
		{"running cancelled back to pending", AppointmentInProgress, "", services(ServiceCancelled, ServicePending), AppointmentPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Appointment{Status: tt.start, MechanicID: tt.mechanic, Services: tt.services}
			a.SettleStatus()
			assert.Equal(t, tt.expected, a.Status)
		})
	}
}

func TestEffectiveDuration(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	inst := ServiceInstance{History: StatusHistory{ServiceInProgress: start}}
	_, ok := inst.EffectiveDuration()
	assert.False(t, ok)

	inst.History[ServiceCompleted] = start.Add(90 * time.Minute)
	d, ok := inst.EffectiveDuration()
	assert.True(t, ok)
	assert.Equal(t, 90*time.Minute, d)
}

func TestAppointmentClone(t *testing.T) {
	typeID := primitive.NewObjectID()
	a := Appointment{
		Vehicle:  Vehicle{TypeID: &typeID},
		Services: services(ServicePending),
		Review:   &Review{Rating: 4},
	}
	a.Services[0].AddOn = &AddOnNote{Reason: "bruit"}

	c := a.Clone()
	c.Services[0].CurrentStatus = ServiceCompleted
	c.Services[0].History[ServiceCompleted] = time.Now()
	c.Services[0].AddOn.Reason = "changed"
	c.Review.Rating = 1
	*c.Vehicle.TypeID = primitive.NilObjectID

	assert.Equal(t, ServicePending, a.Services[0].CurrentStatus)
	assert.Empty(t, a.Services[0].History)
	assert.Equal(t, "bruit", a.Services[0].AddOn.Reason)
	assert.Equal(t, 4, a.Review.Rating)
	assert.Equal(t, typeID, *a.Vehicle.TypeID)
}

func TestAppointmentService(t *testing.T) {
	a := Appointment{Services: services(ServicePending, ServicePending)}
	assert.Equal(t, 1, a.Service(a.Services[1].ID.Hex()))
	assert.Equal(t, -1, a.Service(primitive.NewObjectID().Hex()))
}
