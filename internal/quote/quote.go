// Package quote computes price estimates (devis) for a vehicle and a set of
// service offerings.
package quote

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/catalog"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Engine prices offerings against the current catalog.
type Engine struct {
	offerings    db.OfferingCollection
	parts        db.PartCollection
	vehicles     *catalog.VehicleRegistry
	vehicleTypes db.VehicleTypeCollection
	now          func() time.Time
}

func NewEngine(store *db.Store) *Engine {
	return &Engine{
		offerings:    store.Offerings,
		parts:        store.Parts,
		vehicles:     catalog.NewVehicleRegistry(store.Vehicles, store.VehicleTypes),
		vehicleTypes: store.VehicleTypes,
		now:          time.Now,
	}
}

// Quote prices req for principal. The total is the sum of labor prices; part
// prices are listed per step for display and summed separately in PartsTotal.
func (e *Engine) Quote(ctx context.Context, principal models.Claims, req models.QuoteRequest) (*models.Quote, error) {
	if req.VehicleID == "" && req.VehicleTypeID == "" {
		return nil, apperr.Validation("a vehicle is required for a quote")
	}
	if len(req.OfferingIDs) == 0 {
		return nil, apperr.Validation("select at least one service")
	}
	if dup, ok := firstDuplicate(req.OfferingIDs); ok {
		return nil, apperr.Validation("service %s is selected twice", dup)
	}

	q := &models.Quote{Lines: make([]models.QuoteLine, 0, len(req.OfferingIDs)), GeneratedAt: e.now()}
	var vehicle models.Vehicle
	typeName := ""

	if req.VehicleID != "" {
		v, err := e.vehicles.Get(ctx, req.VehicleID)
		if err != nil {
			return nil, err
		}
		if principal.Role == models.RoleClient && v.ClientID != principal.UserID {
			return nil, apperr.Forbidden("vehicle %s belongs to another client", req.VehicleID)
		}
		vehicle = *v
		q.Vehicle = v
		// A deleted catalog type prices without supplement.
		if q.VehicleType, typeName, err = e.vehicles.ResolveType(ctx, vehicle); err != nil {
			return nil, err
		}
	}
	if q.VehicleType == nil && vehicle.TypeID == nil && req.VehicleTypeID != "" {
		vt, err := e.vehicleTypes.FindVehicleTypeByID(ctx, req.VehicleTypeID)
		if err != nil {
			return nil, err
		}
		q.VehicleType = vt
		typeName = vt.Name
	}

	var vtID *primitive.ObjectID
	if q.VehicleType != nil {
		vtID = &q.VehicleType.ID
	}

	parts := map[primitive.ObjectID]*models.Part{}
	total, partsTotal := decimal.Zero, decimal.Zero
	for _, id := range req.OfferingIDs {
		offering, err := e.offerings.FindOfferingByID(ctx, id)
		if err != nil {
			return nil, err
		}
		supplement := offering.SupplementFor(vtID)
		labor := decimal.NewFromFloat(offering.BaseLaborPrice).Add(decimal.NewFromFloat(supplement))
		line := models.QuoteLine{
			OfferingID:     offering.ID.Hex(),
			Name:           offering.Name,
			BaseLaborPrice: offering.BaseLaborPrice,
			Supplement:     supplement,
			LaborPrice:     labor.Round(2).InexactFloat64(),
			Parts:          []models.QuotePart{},
		}
		for _, step := range offering.Steps {
			for _, pid := range step.CandidatePartIDs {
				part, err := e.part(ctx, parts, pid)
				if err != nil {
					return nil, err
				}
				if part == nil {
					continue
				}
				price, ok := part.PriceFor(vehicle, typeName)
				if !ok {
					continue
				}
				line.Parts = append(line.Parts, models.QuotePart{
					PartID:    part.ID.Hex(),
					Name:      part.Name,
					StepOrder: step.Order,
					StepLabel: step.Label,
					Price:     price,
				})
				partsTotal = partsTotal.Add(decimal.NewFromFloat(price))
			}
		}
		total = total.Add(labor)
		q.Lines = append(q.Lines, line)
	}
	q.Total = total.Round(2).InexactFloat64()
	q.PartsTotal = partsTotal.Round(2).InexactFloat64()

	log.WithFields(log.Fields{
		"vehicle_id": req.VehicleID,
		"offerings":  len(q.Lines),
		"total":      q.Total,
	}).Debug("Quote computed")
	return q, nil
}

// part loads a candidate part once per quote. Parts deleted since the
// offering was saved yield nil.
func (e *Engine) part(ctx context.Context, cache map[primitive.ObjectID]*models.Part, id primitive.ObjectID) (*models.Part, error) {
	if p, ok := cache[id]; ok {
		return p, nil
	}
	p, err := e.parts.FindPartByID(ctx, id.Hex())
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	cache[id] = p
	return p, nil
}

// Options lists the vehicles, vehicle types and offerings principal may quote.
func (e *Engine) Options(ctx context.Context, principal models.Claims) (*models.QuoteOptions, error) {
	clientID := ""
	if principal.Role == models.RoleClient {
		clientID = principal.UserID
	}
	vehicles, err := e.vehicles.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	types, err := e.vehicleTypes.FindVehicleTypes(ctx)
	if err != nil {
		return nil, err
	}
	offerings, err := e.offerings.FindOfferings(ctx)
	if err != nil {
		return nil, err
	}
	return &models.QuoteOptions{Vehicles: vehicles, VehicleTypes: types, Offerings: offerings}, nil
}

func firstDuplicate(ids []string) (string, bool) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id, true
		}
		seen[id] = true
	}
	return "", false
}
