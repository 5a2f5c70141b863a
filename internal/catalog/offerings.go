package catalog

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Minimum lengths for offering text fields.
const (
	minOfferingName        = 3
	minOfferingDescription = 10
	minStepLabel           = 3
)

// ServiceCatalog manages service offerings (prestations).
type ServiceCatalog struct {
	offerings    db.OfferingCollection
	parts        db.PartCollection
	vehicleTypes db.VehicleTypeCollection
}

func NewServiceCatalog(offerings db.OfferingCollection, parts db.PartCollection, vehicleTypes db.VehicleTypeCollection) *ServiceCatalog {
	return &ServiceCatalog{offerings: offerings, parts: parts, vehicleTypes: vehicleTypes}
}

func (c *ServiceCatalog) CreateOffering(ctx context.Context, req models.OfferingRequest) (*models.ServiceOffering, error) {
	offering, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.offerings.InsertOffering(ctx, offering); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"offering_id": offering.ID.Hex(), "name": offering.Name}).Info("Offering created")
	return offering, nil
}

// UpdateOffering replaces the definition of offering id. Service instances
// already booked keep their own copy of name and price.
func (c *ServiceCatalog) UpdateOffering(ctx context.Context, id string, req models.OfferingRequest) (*models.ServiceOffering, error) {
	existing, err := c.offerings.FindOfferingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	offering, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	offering.ID = existing.ID
	offering.CreatedAt = existing.CreatedAt
	if err := c.offerings.UpdateOffering(ctx, offering); err != nil {
		return nil, err
	}
	log.WithField("offering_id", id).Info("Offering updated")
	return offering, nil
}

func (c *ServiceCatalog) DeleteOffering(ctx context.Context, id string) error {
	if err := c.offerings.DeleteOffering(ctx, id); err != nil {
		return err
	}
	log.WithField("offering_id", id).Info("Offering deleted")
	return nil
}

func (c *ServiceCatalog) GetOffering(ctx context.Context, id string) (*models.ServiceOffering, error) {
	return c.offerings.FindOfferingByID(ctx, id)
}

func (c *ServiceCatalog) ListOfferings(ctx context.Context) ([]models.ServiceOffering, error) {
	return c.offerings.FindOfferings(ctx)
}

// LaborPriceFor returns the labor price of an offering for a vehicle type.
// An empty vehicleTypeID yields the base price.
func (c *ServiceCatalog) LaborPriceFor(ctx context.Context, offeringID, vehicleTypeID string) (float64, error) {
	offering, err := c.offerings.FindOfferingByID(ctx, offeringID)
	if err != nil {
		return 0, err
	}
	if vehicleTypeID == "" {
		return offering.BaseLaborPrice, nil
	}
	typeID, err := primitive.ObjectIDFromHex(vehicleTypeID)
	if err != nil {
		return 0, apperr.Validation("invalid vehicle type id %q", vehicleTypeID)
	}
	return offering.LaborPriceFor(&typeID), nil
}

func (c *ServiceCatalog) build(ctx context.Context, req models.OfferingRequest) (*models.ServiceOffering, error) {
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	switch {
	case utf8.RuneCountInString(name) < minOfferingName:
		return nil, apperr.Validation("offering name must be at least %d characters", minOfferingName)
	case utf8.RuneCountInString(description) < minOfferingDescription:
		return nil, apperr.Validation("offering description must be at least %d characters", minOfferingDescription)
	case req.BaseLaborPrice < 0:
		return nil, apperr.Validation("base labor price cannot be negative")
	}

	offering := &models.ServiceOffering{
		Name:           name,
		Description:    description,
		BaseLaborPrice: req.BaseLaborPrice,
		Steps:          make([]models.RepairStep, 0, len(req.Steps)),
		Supplements:    []models.LaborSupplement{},
	}

	// Steps are numbered in submission order.
	for i, s := range req.Steps {
		label := strings.TrimSpace(s.Label)
		if utf8.RuneCountInString(label) < minStepLabel {
			return nil, apperr.Validation("step %d: label must be at least %d characters", i+1, minStepLabel)
		}
		step := models.RepairStep{Order: i + 1, Label: label, CandidatePartIDs: []primitive.ObjectID{}}
		for _, pid := range s.CandidatePartIDs {
			part, err := c.parts.FindPartByID(ctx, pid)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrValidation) {
					return nil, apperr.Validation("step %d: unknown part %q", i+1, pid)
				}
				return nil, err
			}
			step.CandidatePartIDs = append(step.CandidatePartIDs, part.ID)
		}
		offering.Steps = append(offering.Steps, step)
	}

	seen := make(map[primitive.ObjectID]bool, len(req.Supplements))
	for _, s := range req.Supplements {
		if s.Amount < 0 {
			continue
		}
		vt, err := c.vehicleTypes.FindVehicleTypeByID(ctx, s.VehicleTypeID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrValidation) {
				continue
			}
			return nil, err
		}
		if seen[vt.ID] {
			return nil, apperr.Validation("only one supplement per vehicle type, %s is repeated", vt.Name)
		}
		seen[vt.ID] = true
		offering.Supplements = append(offering.Supplements, models.LaborSupplement{VehicleTypeID: vt.ID, Amount: s.Amount})
	}
	return offering, nil
}
