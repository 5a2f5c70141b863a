package db

import (
	"context"

	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PartCollection defines the interface for spare part operations.
type PartCollection interface {
	InsertPart(ctx context.Context, part *models.Part) error
	FindParts(ctx context.Context) ([]models.Part, error)
	FindPartByID(ctx context.Context, id string) (*models.Part, error)
	UpdatePart(ctx context.Context, part *models.Part) error
	DeletePart(ctx context.Context, id string) error
}

// OfferingCollection defines the interface for service offering operations.
type OfferingCollection interface {
	InsertOffering(ctx context.Context, offering *models.ServiceOffering) error
	FindOfferings(ctx context.Context) ([]models.ServiceOffering, error)
	FindOfferingByID(ctx context.Context, id string) (*models.ServiceOffering, error)
	UpdateOffering(ctx context.Context, offering *models.ServiceOffering) error
	DeleteOffering(ctx context.Context, id string) error
	// PullCandidatePart removes partID from every repair step and returns
	// the number of offerings changed.
	PullCandidatePart(ctx context.Context, partID primitive.ObjectID) (int64, error)
}

// VehicleTypeCollection defines the interface for vehicle type operations.
type VehicleTypeCollection interface {
	InsertVehicleType(ctx context.Context, vt *models.VehicleType) error
	FindVehicleTypes(ctx context.Context) ([]models.VehicleType, error)
	FindVehicleTypeByID(ctx context.Context, id string) (*models.VehicleType, error)
}

// VehicleCollection defines the interface for client vehicle operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	// FindVehicles lists the vehicles of clientID, or every vehicle when clientID is empty.
	FindVehicles(ctx context.Context, clientID string) ([]models.Vehicle, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
}

// AppointmentCollection defines the interface for appointment operations.
// ReplaceAppointment succeeds only if the stored version equals
// appointment.Version; on success the version is incremented in place.
type AppointmentCollection interface {
	InsertAppointment(ctx context.Context, appointment *models.Appointment) error
	FindAppointmentByID(ctx context.Context, id string) (*models.Appointment, error)
	FindAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	ReplaceAppointment(ctx context.Context, appointment *models.Appointment) error
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FindUsers lists users with the given role, or all users when role is empty.
	FindUsers(ctx context.Context, role models.Role) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// Store bundles the collections used by the services.
type Store struct {
	Parts        PartCollection
	Offerings    OfferingCollection
	VehicleTypes VehicleTypeCollection
	Vehicles     VehicleCollection
	Appointments AppointmentCollection
	Users        UserCollection
}
