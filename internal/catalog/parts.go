// Package catalog manages the reference data appointments and quotes are
// built from: spare parts, service offerings, vehicle types and vehicles.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/events"
	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PartCatalog manages spare parts and their stock.
type PartCatalog struct {
	parts     db.PartCollection
	offerings db.OfferingCollection
	vehicles  db.VehicleCollection
	publisher events.Publisher
	now       func() time.Time
}

func NewPartCatalog(parts db.PartCollection, offerings db.OfferingCollection, vehicles db.VehicleCollection, publisher events.Publisher) *PartCatalog {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &PartCatalog{parts: parts, offerings: offerings, vehicles: vehicles, publisher: publisher, now: time.Now}
}

// CreatePart validates req and stores the new part.
func (c *PartCatalog) CreatePart(ctx context.Context, req models.PartRequest) (*models.Part, error) {
	name := strings.TrimSpace(req.Name)
	if len([]rune(name)) < 2 {
		return nil, apperr.Validation("part name must be at least 2 characters")
	}
	if len(req.Compatibilities) > 0 && len(req.Variants) > 0 {
		return nil, apperr.Validation("a part is priced either by compatible vehicle or by vehicle type tag, not both")
	}

	part := &models.Part{Name: name}
	for i, cr := range req.Compatibilities {
		row, err := c.compatibility(ctx, i+1, cr)
		if err != nil {
			return nil, err
		}
		part.Compatibilities = append(part.Compatibilities, row)
	}
	for i, vr := range req.Variants {
		row, err := variant(i+1, vr)
		if err != nil {
			return nil, err
		}
		part.Variants = append(part.Variants, row)
	}

	if err := c.parts.InsertPart(ctx, part); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"part_id": part.ID.Hex(), "name": part.Name}).Info("Part created")
	return part, nil
}

func (c *PartCatalog) compatibility(ctx context.Context, n int, cr models.CompatibilityRequest) (models.Compatibility, error) {
	ref := models.VehicleRef{Make: strings.TrimSpace(cr.Make), Model: strings.TrimSpace(cr.Model), Year: cr.Year}
	if cr.VehicleID != "" {
		v, err := c.vehicles.FindVehicleByID(ctx, cr.VehicleID)
		if err != nil {
			return models.Compatibility{}, err
		}
		ref = models.VehicleRef{ID: v.ID, Make: v.Make, Model: v.Model, Year: v.Year}
	}
	switch {
	case ref.Make == "" || ref.Model == "":
		return models.Compatibility{}, apperr.Validation("compatibility %d: make and model are required", n)
	case ref.Year <= 0:
		return models.Compatibility{}, apperr.Validation("compatibility %d: year is required", n)
	case cr.Price < 0:
		return models.Compatibility{}, apperr.Validation("compatibility %d: price cannot be negative", n)
	case cr.StockQuantity < 0 || cr.AlertThreshold < 0:
		return models.Compatibility{}, apperr.Validation("compatibility %d: stock and alert threshold cannot be negative", n)
	}
	return models.Compatibility{
		ID:      primitive.NewObjectID(),
		Vehicle: ref,
		Price:   cr.Price,
		Stock:   models.StockLevel{Quantity: cr.StockQuantity, AlertThreshold: cr.AlertThreshold},
	}, nil
}

func variant(n int, vr models.VariantRequest) (models.Variant, error) {
	tag := strings.TrimSpace(vr.VehicleTypeTag)
	if tag == "" {
		return models.Variant{}, apperr.Validation("variant %d: vehicle type tag is required", n)
	}
	if vr.Price < 0 {
		return models.Variant{}, apperr.Validation("variant %d: price cannot be negative", n)
	}
	row := models.Variant{ID: primitive.NewObjectID(), VehicleTypeTag: tag, Price: vr.Price}
	if vr.StockQuantity != nil || vr.AlertThreshold != nil {
		stock := models.StockLevel{}
		if vr.StockQuantity != nil {
			stock.Quantity = *vr.StockQuantity
		}
		if vr.AlertThreshold != nil {
			stock.AlertThreshold = *vr.AlertThreshold
		}
		if stock.Quantity < 0 || stock.AlertThreshold < 0 {
			return models.Variant{}, apperr.Validation("variant %d: stock and alert threshold cannot be negative", n)
		}
		row.Stock = &stock
	}
	return row, nil
}

func (c *PartCatalog) ListParts(ctx context.Context) ([]models.Part, error) {
	return c.parts.FindParts(ctx)
}

func (c *PartCatalog) GetPart(ctx context.Context, id string) (*models.Part, error) {
	return c.parts.FindPartByID(ctx, id)
}

// ListLowStock returns every stocked row at or below its alert threshold.
func (c *PartCatalog) ListLowStock(ctx context.Context) (*models.LowStockReport, error) {
	parts, err := c.parts.FindParts(ctx)
	if err != nil {
		return nil, err
	}
	items := LowStockRows(parts)
	return &models.LowStockReport{TotalAlert: len(items), Items: items}, nil
}

// LowStockRows flattens parts into their low-stock rows. Variants without
// stock tracking are never reported.
func LowStockRows(parts []models.Part) []models.LowStockItem {
	items := []models.LowStockItem{}
	for _, p := range parts {
		for _, row := range p.Compatibilities {
			if !row.Stock.Low() {
				continue
			}
			ref := row.Vehicle
			items = append(items, models.LowStockItem{
				PartID:         p.ID.Hex(),
				PartName:       p.Name,
				RowID:          row.ID.Hex(),
				Vehicle:        &ref,
				Price:          row.Price,
				StockQuantity:  row.Stock.Quantity,
				AlertThreshold: row.Stock.AlertThreshold,
				OutOfStock:     row.Stock.Quantity == 0,
			})
		}
		for _, row := range p.Variants {
			if row.Stock == nil || !row.Stock.Low() {
				continue
			}
			items = append(items, models.LowStockItem{
				PartID:         p.ID.Hex(),
				PartName:       p.Name,
				RowID:          row.ID.Hex(),
				VehicleTypeTag: row.VehicleTypeTag,
				Price:          row.Price,
				StockQuantity:  row.Stock.Quantity,
				AlertThreshold: row.Stock.AlertThreshold,
				OutOfStock:     row.Stock.Quantity == 0,
			})
		}
	}
	return items
}

// RemovePart detaches the part from every repair step, then deletes it.
// Steps keep their remaining candidates. When detaching fails the part is
// left in place; the pull is idempotent so the call can be retried.
func (c *PartCatalog) RemovePart(ctx context.Context, id string) error {
	part, err := c.parts.FindPartByID(ctx, id)
	if err != nil {
		return err
	}
	changed, err := c.offerings.PullCandidatePart(ctx, part.ID)
	if err != nil {
		return err
	}
	if err := c.parts.DeletePart(ctx, id); err != nil {
		return err
	}
	log.WithFields(log.Fields{"part_id": id, "offerings_updated": changed}).Info("Part removed")
	return nil
}

// SearchByText returns parts whose name or compatible vehicles contain
// every word of term, ignoring case and accents.
func (c *PartCatalog) SearchByText(ctx context.Context, term string) ([]models.Part, error) {
	parts, err := c.parts.FindParts(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Part{}
	for _, p := range parts {
		if MatchWords(term, p.SearchText()) {
			out = append(out, p)
		}
	}
	return out, nil
}

// SetStock sets the quantity on hand of one row and raises a stock alert
// when the row ends up at or below its threshold.
func (c *PartCatalog) SetStock(ctx context.Context, partID string, req models.StockUpdateRequest) (*models.Part, error) {
	if req.Quantity < 0 {
		return nil, apperr.Validation("stock quantity cannot be negative")
	}
	part, err := c.parts.FindPartByID(ctx, partID)
	if err != nil {
		return nil, err
	}

	var level *models.StockLevel
	for i := range part.Compatibilities {
		if part.Compatibilities[i].ID.Hex() == req.RowID {
			level = &part.Compatibilities[i].Stock
		}
	}
	for i := range part.Variants {
		if part.Variants[i].ID.Hex() == req.RowID {
			if part.Variants[i].Stock == nil {
				part.Variants[i].Stock = &models.StockLevel{}
			}
			level = part.Variants[i].Stock
		}
	}
	if level == nil {
		return nil, apperr.NotFound("stock row", req.RowID)
	}
	level.Quantity = req.Quantity

	if err := c.parts.UpdatePart(ctx, part); err != nil {
		return nil, err
	}
	if level.Low() {
		c.alert(ctx, part, req.RowID, *level)
	}
	return part, nil
}

func (c *PartCatalog) alert(ctx context.Context, part *models.Part, rowID string, level models.StockLevel) {
	fields := log.Fields{"part_id": part.ID.Hex(), "row_id": rowID, "quantity": level.Quantity, "threshold": level.AlertThreshold}
	log.WithFields(fields).Warn("Part stock is low")
	err := c.publisher.Publish(ctx, events.Event{
		Type:      events.StockLow,
		PartID:    part.ID.Hex(),
		RowID:     rowID,
		Quantity:  &level.Quantity,
		Threshold: &level.AlertThreshold,
		At:        c.now(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).WithFields(fields).Error("Failed to publish stock alert")
	}
}
