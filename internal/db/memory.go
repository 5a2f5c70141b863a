package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// table keeps rows in insertion order.
type table[T any] struct {
	rows  map[primitive.ObjectID]T
	order []primitive.ObjectID
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[primitive.ObjectID]T)}
}

func (t *table[T]) put(id primitive.ObjectID, row T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

func (t *table[T]) remove(id primitive.ObjectID) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[T]) all(clone func(T) T) []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, clone(t.rows[id]))
	}
	return out
}

// Memory is a process-local implementation of every collection interface.
// Rows are copied on the way in and out so callers never share state.
type Memory struct {
	mu           sync.RWMutex
	parts        *table[models.Part]
	offerings    *table[models.ServiceOffering]
	vehicleTypes *table[models.VehicleType]
	vehicles     *table[models.Vehicle]
	appointments *table[models.Appointment]
	users        *table[models.User]
	now          func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		parts:        newTable[models.Part](),
		offerings:    newTable[models.ServiceOffering](),
		vehicleTypes: newTable[models.VehicleType](),
		vehicles:     newTable[models.Vehicle](),
		appointments: newTable[models.Appointment](),
		users:        newTable[models.User](),
		now:          time.Now,
	}
}

// NewMemoryStore returns a Store whose collections all share one Memory.
func NewMemoryStore() *Store {
	m := NewMemory()
	return &Store{
		Parts:        m,
		Offerings:    m,
		VehicleTypes: m,
		Vehicles:     m,
		Appointments: m,
		Users:        m,
	}
}

func assignID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

func clonePart(p models.Part) models.Part {
	p.Compatibilities = append([]models.Compatibility(nil), p.Compatibilities...)
	variants := make([]models.Variant, len(p.Variants))
	for i, v := range p.Variants {
		if v.Stock != nil {
			s := *v.Stock
			v.Stock = &s
		}
		variants[i] = v
	}
	if p.Variants == nil {
		variants = nil
	}
	p.Variants = variants
	return p
}

func cloneOffering(o models.ServiceOffering) models.ServiceOffering {
	steps := make([]models.RepairStep, len(o.Steps))
	for i, s := range o.Steps {
		s.CandidatePartIDs = append([]primitive.ObjectID(nil), s.CandidatePartIDs...)
		steps[i] = s
	}
	o.Steps = steps
	o.Supplements = append([]models.LaborSupplement(nil), o.Supplements...)
	return o
}

func cloneVehicleType(v models.VehicleType) models.VehicleType { return v }

func cloneVehicle(v models.Vehicle) models.Vehicle {
	if v.TypeID != nil {
		id := *v.TypeID
		v.TypeID = &id
	}
	return v
}

func cloneAppointment(a models.Appointment) models.Appointment { return a.Clone() }

func cloneUser(u models.User) models.User {
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return u
}

func get[T any](m *Memory, t *table[T], clone func(T) T, what, id string) (*T, error) {
	oid, err := parseID(what, id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := t.rows[oid]
	if !ok {
		return nil, apperr.NotFound(what, id)
	}
	out := clone(row)
	return &out, nil
}

func list[T any](m *Memory, t *table[T], clone func(T) T) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return t.all(clone)
}

func drop[T any](m *Memory, t *table[T], what, id string) error {
	oid, err := parseID(what, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !t.remove(oid) {
		return apperr.NotFound(what, id)
	}
	return nil
}

func replace[T any](m *Memory, t *table[T], what string, id primitive.ObjectID, row T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return apperr.NotFound(what, id.Hex())
	}
	t.put(id, row)
	return nil
}

func (m *Memory) InsertPart(_ context.Context, part *models.Part) error {
	assignID(&part.ID)
	now := m.now()
	part.CreatedAt, part.UpdatedAt = now, now
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts.put(part.ID, clonePart(*part))
	return nil
}

func (m *Memory) FindParts(_ context.Context) ([]models.Part, error) {
	parts := list(m, m.parts, clonePart)
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Name < parts[j].Name })
	return parts, nil
}

func (m *Memory) FindPartByID(_ context.Context, id string) (*models.Part, error) {
	return get(m, m.parts, clonePart, "part", id)
}

func (m *Memory) UpdatePart(_ context.Context, part *models.Part) error {
	part.UpdatedAt = m.now()
	return replace(m, m.parts, "part", part.ID, clonePart(*part))
}

func (m *Memory) DeletePart(_ context.Context, id string) error {
	return drop(m, m.parts, "part", id)
}

func (m *Memory) InsertOffering(_ context.Context, offering *models.ServiceOffering) error {
	assignID(&offering.ID)
	now := m.now()
	offering.CreatedAt, offering.UpdatedAt = now, now
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offerings.put(offering.ID, cloneOffering(*offering))
	return nil
}

func (m *Memory) FindOfferings(_ context.Context) ([]models.ServiceOffering, error) {
	offerings := list(m, m.offerings, cloneOffering)
	sort.SliceStable(offerings, func(i, j int) bool { return offerings[i].Name < offerings[j].Name })
	return offerings, nil
}

func (m *Memory) FindOfferingByID(_ context.Context, id string) (*models.ServiceOffering, error) {
	return get(m, m.offerings, cloneOffering, "offering", id)
}

func (m *Memory) UpdateOffering(_ context.Context, offering *models.ServiceOffering) error {
	offering.UpdatedAt = m.now()
	return replace(m, m.offerings, "offering", offering.ID, cloneOffering(*offering))
}

func (m *Memory) DeleteOffering(_ context.Context, id string) error {
	return drop(m, m.offerings, "offering", id)
}

func (m *Memory) PullCandidatePart(_ context.Context, partID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for id, o := range m.offerings.rows {
		touched := false
		for i, step := range o.Steps {
			kept := step.CandidatePartIDs[:0:0]
			for _, candidate := range step.CandidatePartIDs {
				if candidate == partID {
					touched = true
					continue
				}
				kept = append(kept, candidate)
			}
			o.Steps[i].CandidatePartIDs = kept
		}
		if touched {
			o.UpdatedAt = m.now()
			m.offerings.rows[id] = o
			changed++
		}
	}
	return changed, nil
}

func (m *Memory) InsertVehicleType(_ context.Context, vt *models.VehicleType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.vehicleTypes.rows {
		if strings.EqualFold(existing.Name, vt.Name) {
			return apperr.Conflict("vehicle type %s already exists", vt.Name)
		}
	}
	assignID(&vt.ID)
	vt.CreatedAt = m.now()
	m.vehicleTypes.put(vt.ID, *vt)
	return nil
}

func (m *Memory) FindVehicleTypes(_ context.Context) ([]models.VehicleType, error) {
	types := list(m, m.vehicleTypes, cloneVehicleType)
	sort.SliceStable(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}

func (m *Memory) FindVehicleTypeByID(_ context.Context, id string) (*models.VehicleType, error) {
	return get(m, m.vehicleTypes, cloneVehicleType, "vehicle type", id)
}

func (m *Memory) InsertVehicle(_ context.Context, vehicle *models.Vehicle) error {
	assignID(&vehicle.ID)
	vehicle.CreatedAt = m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles.put(vehicle.ID, cloneVehicle(*vehicle))
	return nil
}

func (m *Memory) FindVehicles(_ context.Context, clientID string) ([]models.Vehicle, error) {
	all := list(m, m.vehicles, cloneVehicle)
	if clientID == "" {
		return all, nil
	}
	out := all[:0]
	for _, v := range all {
		if v.ClientID == clientID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *Memory) FindVehicleByID(_ context.Context, id string) (*models.Vehicle, error) {
	return get(m, m.vehicles, cloneVehicle, "vehicle", id)
}

func (m *Memory) InsertAppointment(_ context.Context, appointment *models.Appointment) error {
	assignID(&appointment.ID)
	appointment.Version = 1
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments.put(appointment.ID, appointment.Clone())
	return nil
}

func (m *Memory) FindAppointmentByID(_ context.Context, id string) (*models.Appointment, error) {
	return get(m, m.appointments, cloneAppointment, "appointment", id)
}

func (m *Memory) FindAppointments(_ context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	all := list(m, m.appointments, cloneAppointment)
	out := make([]models.Appointment, 0, len(all))
	for _, a := range all {
		if filter.ClientID != "" && a.ClientID != filter.ClientID {
			continue
		}
		if filter.MechanicID != "" && a.MechanicID != filter.MechanicID {
			continue
		}
		if filter.From != nil && a.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.ScheduledAt.After(*filter.To) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

// ReplaceAppointment applies the same version check as the Mongo implementation.
func (m *Memory) ReplaceAppointment(_ context.Context, appointment *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.appointments.rows[appointment.ID]
	if !ok {
		return apperr.NotFound("appointment", appointment.ID.Hex())
	}
	if stored.Version != appointment.Version {
		return apperr.Conflict("appointment %s was modified concurrently, reload it and retry", appointment.ID.Hex())
	}
	appointment.Version++
	appointment.UpdatedAt = m.now()
	m.appointments.put(appointment.ID, appointment.Clone())
	return nil
}

func (m *Memory) InsertUser(_ context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users.rows {
		if existing.Email == user.Email {
			return apperr.Conflict("user %s already exists", user.Email)
		}
	}
	assignID(&user.ID)
	user.CreatedAt = m.now()
	user.UpdatedAt = user.CreatedAt
	user.IsActive = true
	m.users.put(user.ID, cloneUser(*user))
	return nil
}

func (m *Memory) FindUserByID(_ context.Context, id string) (*models.User, error) {
	return get(m, m.users, cloneUser, "user", id)
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users.rows {
		if u.Email == email {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, apperr.NotFound("user", email)
}

func (m *Memory) FindUsers(_ context.Context, role models.Role) ([]models.User, error) {
	all := list(m, m.users, cloneUser)
	if role == "" {
		return all, nil
	}
	out := all[:0]
	for _, u := range all {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	return drop(m, m.users, "user", id)
}

func (m *Memory) UpdateLastLogin(_ context.Context, id string) error {
	oid, err := parseID("user", id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users.rows[oid]
	if !ok {
		return apperr.NotFound("user", id)
	}
	now := m.now()
	u.LastLogin = &now
	u.UpdatedAt = now
	m.users.rows[oid] = u
	return nil
}
