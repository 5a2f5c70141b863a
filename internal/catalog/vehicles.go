package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/models"
)

const minVehicleYear = 1900

// VehicleRegistry manages vehicle types and client vehicles.
type VehicleRegistry struct {
	vehicles db.VehicleCollection
	types    db.VehicleTypeCollection
	now      func() time.Time
}

func NewVehicleRegistry(vehicles db.VehicleCollection, types db.VehicleTypeCollection) *VehicleRegistry {
	return &VehicleRegistry{vehicles: vehicles, types: types, now: time.Now}
}

func (r *VehicleRegistry) CreateType(ctx context.Context, req models.VehicleTypeRequest) (*models.VehicleType, error) {
	name := strings.TrimSpace(req.Name)
	if len([]rune(name)) < 2 {
		return nil, apperr.Validation("vehicle type name must be at least 2 characters")
	}
	vt := &models.VehicleType{Name: name}
	if err := r.types.InsertVehicleType(ctx, vt); err != nil {
		return nil, err
	}
	return vt, nil
}

func (r *VehicleRegistry) ListTypes(ctx context.Context) ([]models.VehicleType, error) {
	return r.types.FindVehicleTypes(ctx)
}

// Build validates req into an unsaved vehicle owned by clientID.
func (r *VehicleRegistry) Build(ctx context.Context, clientID string, req models.VehicleRequest) (*models.Vehicle, error) {
	v := &models.Vehicle{
		ClientID:  clientID,
		Make:      strings.TrimSpace(req.Make),
		Model:     strings.TrimSpace(req.Model),
		Year:      req.Year,
		TypeOther: strings.TrimSpace(req.TypeOther),
	}
	switch {
	case v.Make == "" || v.Model == "":
		return nil, apperr.Validation("vehicle make and model are required")
	case v.Year < minVehicleYear || v.Year > r.now().Year()+1:
		return nil, apperr.Validation("vehicle year %d is out of range", v.Year)
	}
	if req.TypeID != "" {
		vt, err := r.types.FindVehicleTypeByID(ctx, req.TypeID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrValidation) {
				return nil, apperr.Validation("unknown vehicle type %q", req.TypeID)
			}
			return nil, err
		}
		v.TypeID = &vt.ID
		v.TypeOther = ""
	}
	return v, nil
}

// Register validates and stores a vehicle for clientID.
func (r *VehicleRegistry) Register(ctx context.Context, clientID string, req models.VehicleRequest) (*models.Vehicle, error) {
	if clientID == "" {
		return nil, apperr.Validation("client id is required")
	}
	v, err := r.Build(ctx, clientID, req)
	if err != nil {
		return nil, err
	}
	if err := r.vehicles.InsertVehicle(ctx, v); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"vehicle_id": v.ID.Hex(), "client_id": clientID}).Info("Vehicle registered")
	return v, nil
}

func (r *VehicleRegistry) Get(ctx context.Context, id string) (*models.Vehicle, error) {
	return r.vehicles.FindVehicleByID(ctx, id)
}

// List returns the vehicles of clientID, or all when clientID is empty.
func (r *VehicleRegistry) List(ctx context.Context, clientID string) ([]models.Vehicle, error) {
	return r.vehicles.FindVehicles(ctx, clientID)
}

// ResolveType returns the catalog type of v, nil when it has none or the
// type was deleted, and the label used to match part variants: the catalog
// type name, or the free-text description.
func (r *VehicleRegistry) ResolveType(ctx context.Context, v models.Vehicle) (*models.VehicleType, string, error) {
	if v.TypeID == nil {
		return nil, v.TypeOther, nil
	}
	vt, err := r.types.FindVehicleTypeByID(ctx, v.TypeID.Hex())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, v.TypeOther, nil
		}
		return nil, "", err
	}
	return vt, vt.Name, nil
}
