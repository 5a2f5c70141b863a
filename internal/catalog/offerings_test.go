package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validOffering() models.OfferingRequest {
	return models.OfferingRequest{
		Name:           "Vidange",
		Description:    "Vidange moteur et remplacement du filtre",
		BaseLaborPrice: 60,
	}
}

func TestServiceCatalog_Validation(t *testing.T) {
	store := db.NewMemoryStore()
	c := NewServiceCatalog(store.Offerings, store.Parts, store.VehicleTypes)

	tests := []struct {
		name   string
		mutate func(*models.OfferingRequest)
	}{
		{"short name", func(r *models.OfferingRequest) { r.Name = "Vi" }},
		{"blank name", func(r *models.OfferingRequest) { r.Name = "     " }},
		{"short description", func(r *models.OfferingRequest) { r.Description = "Vidange" }},
		{"negative price", func(r *models.OfferingRequest) { r.BaseLaborPrice = -1 }},
		{"short step label", func(r *models.OfferingRequest) {
			r.Steps = []models.RepairStepRequest{{Label: "ok"}}
		}},
		{"unknown part", func(r *models.OfferingRequest) {
			r.Steps = []models.RepairStepRequest{{Label: "Vidange", CandidatePartIDs: []string{primitive.NewObjectID().Hex()}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validOffering()
			tt.mutate(&req)
			_, err := c.CreateOffering(context.Background(), req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestServiceCatalog_CreateNormalizesStepsAndSupplements(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	c := NewServiceCatalog(store.Offerings, store.Parts, store.VehicleTypes)

	suv := &models.VehicleType{Name: "SUV"}
	require.NoError(t, store.VehicleTypes.InsertVehicleType(ctx, suv))
	filter := &models.Part{Name: "Filtre à huile"}
	require.NoError(t, store.Parts.InsertPart(ctx, filter))

	req := validOffering()
	req.Steps = []models.RepairStepRequest{
		{Label: "Vidange de l'huile"},
		{Label: "Remplacement du filtre", CandidatePartIDs: []string{filter.ID.Hex()}},
	}
	req.Supplements = []models.SupplementRequest{
		{VehicleTypeID: suv.ID.Hex(), Amount: 20},
		{VehicleTypeID: primitive.NewObjectID().Hex(), Amount: 15},
		{VehicleTypeID: "garbage", Amount: 10},
		{VehicleTypeID: suv.ID.Hex(), Amount: -5},
	}

	offering, err := c.CreateOffering(ctx, req)
	require.NoError(t, err)
	require.Len(t, offering.Steps, 2)
	assert.Equal(t, 1, offering.Steps[0].Order)
	assert.Equal(t, 2, offering.Steps[1].Order)
	assert.Equal(t, []primitive.ObjectID{filter.ID}, offering.Steps[1].CandidatePartIDs)
	require.Len(t, offering.Supplements, 1)
	assert.Equal(t, suv.ID, offering.Supplements[0].VehicleTypeID)

	req.Supplements = []models.SupplementRequest{
		{VehicleTypeID: suv.ID.Hex(), Amount: 20},
		{VehicleTypeID: suv.ID.Hex(), Amount: 30},
	}
	_, err = c.CreateOffering(ctx, req)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestServiceCatalog_UpdateRenumbersSteps(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	c := NewServiceCatalog(store.Offerings, store.Parts, store.VehicleTypes)

	req := validOffering()
	req.Steps = []models.RepairStepRequest{{Label: "Étape A"}, {Label: "Étape B"}, {Label: "Étape C"}}
	created, err := c.CreateOffering(ctx, req)
	require.NoError(t, err)

	// Step B removed
	req.Steps = []models.RepairStepRequest{{Label: "Étape A"}, {Label: "Étape C"}}
	updated, err := c.UpdateOffering(ctx, created.ID.Hex(), req)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	require.Len(t, updated.Steps, 2)
	assert.Equal(t, "Étape C", updated.Steps[1].Label)
	assert.Equal(t, 2, updated.Steps[1].Order)

	_, err = c.UpdateOffering(ctx, primitive.NewObjectID().Hex(), req)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceCatalog_DeleteOffering(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	c := NewServiceCatalog(store.Offerings, store.Parts, store.VehicleTypes)

	created, err := c.CreateOffering(ctx, validOffering())
	require.NoError(t, err)
	require.NoError(t, c.DeleteOffering(ctx, created.ID.Hex()))
	assert.ErrorIs(t, c.DeleteOffering(ctx, created.ID.Hex()), apperr.ErrNotFound)
}

func TestServiceCatalog_LaborPriceFor(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	c := NewServiceCatalog(store.Offerings, store.Parts, store.VehicleTypes)

	suv := &models.VehicleType{Name: "SUV"}
	citadine := &models.VehicleType{Name: "Citadine"}
	require.NoError(t, store.VehicleTypes.InsertVehicleType(ctx, suv))
	require.NoError(t, store.VehicleTypes.InsertVehicleType(ctx, citadine))

	req := validOffering()
	req.Supplements = []models.SupplementRequest{{VehicleTypeID: suv.ID.Hex(), Amount: 25}}
	offering, err := c.CreateOffering(ctx, req)
	require.NoError(t, err)

	price, err := c.LaborPriceFor(ctx, offering.ID.Hex(), suv.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 85.0, price)

	price, err = c.LaborPriceFor(ctx, offering.ID.Hex(), citadine.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 60.0, price)

	price, err = c.LaborPriceFor(ctx, offering.ID.Hex(), "")
	require.NoError(t, err)
	assert.Equal(t, 60.0, price)

	_, err = c.LaborPriceFor(ctx, primitive.NewObjectID().Hex(), "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
