package quote

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

type fixture struct {
	store    *db.Store
	engine   *Engine
	suv      *models.VehicleType
	duster   *models.Vehicle
	clio     *models.Vehicle
	vidange  *models.ServiceOffering
	freinage *models.ServiceOffering
	pad      *models.Part
	oil      *models.Part
}

var client = models.Claims{UserID: "client-1", Role: models.RoleClient}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: db.NewMemoryStore()}
	f.engine = NewEngine(f.store)

	f.suv = &models.VehicleType{Name: "SUV"}
	require.NoError(t, f.store.VehicleTypes.InsertVehicleType(ctx, f.suv))

	f.duster = &models.Vehicle{ClientID: "client-1", Make: "Dacia", Model: "Duster", Year: 2022, TypeID: &f.suv.ID}
	f.clio = &models.Vehicle{ClientID: "client-1", Make: "Renault", Model: "Clio", Year: 2019, TypeOther: "Citadine"}
	require.NoError(t, f.store.Vehicles.InsertVehicle(ctx, f.duster))
	require.NoError(t, f.store.Vehicles.InsertVehicle(ctx, f.clio))

	f.pad = &models.Part{Name: "Plaquette avant", Compatibilities: []models.Compatibility{
		{ID: primitive.NewObjectID(), Vehicle: models.VehicleRef{Make: "renault", Model: "CLIO", Year: 2019}, Price: 45.5},
	}}
	f.oil = &models.Part{Name: "Huile 5W30", Variants: []models.Variant{
		{ID: primitive.NewObjectID(), VehicleTypeTag: "suv", Price: 39.9},
		{ID: primitive.NewObjectID(), VehicleTypeTag: "Citadine", Price: 29.9},
	}}
	require.NoError(t, f.store.Parts.InsertPart(ctx, f.pad))
	require.NoError(t, f.store.Parts.InsertPart(ctx, f.oil))

	f.vidange = &models.ServiceOffering{
		Name:           "Vidange",
		BaseLaborPrice: 60,
		Steps:          []models.RepairStep{{Order: 1, Label: "Vidange", CandidatePartIDs: []primitive.ObjectID{f.oil.ID}}},
		Supplements:    []models.LaborSupplement{{VehicleTypeID: f.suv.ID, Amount: 15.5}},
	}
	f.freinage = &models.ServiceOffering{
		Name:           "Freinage",
		BaseLaborPrice: 80.1,
		Steps:          []models.RepairStep{{Order: 1, Label: "Plaquettes", CandidatePartIDs: []primitive.ObjectID{f.pad.ID}}},
	}
	require.NoError(t, f.store.Offerings.InsertOffering(ctx, f.vidange))
	require.NoError(t, f.store.Offerings.InsertOffering(ctx, f.freinage))
	return f
}

func TestQuote_TotalIsSumOfBaseLaborWithoutSupplement(t *testing.T) {
	f := setup(t)
	q, err := f.engine.Quote(context.Background(), client, models.QuoteRequest{
		VehicleID:   f.clio.ID.Hex(),
		OfferingIDs: []string{f.vidange.ID.Hex(), f.freinage.ID.Hex()},
	})
	require.NoError(t, err)
	assert.InDelta(t, 140.1, q.Total, 1e-9)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, f.vidange.ID.Hex(), q.Lines[0].OfferingID)
	assert.Zero(t, q.Lines[0].Supplement)

	// Part prices are informational only
	require.Len(t, q.Lines[0].Parts, 1)
	assert.Equal(t, 29.9, q.Lines[0].Parts[0].Price)
	require.Len(t, q.Lines[1].Parts, 1)
	assert.Equal(t, 45.5, q.Lines[1].Parts[0].Price)
	assert.InDelta(t, 75.4, q.PartsTotal, 1e-9)
}

func TestQuote_AppliesVehicleTypeSupplement(t *testing.T) {
	f := setup(t)
	q, err := f.engine.Quote(context.Background(), client, models.QuoteRequest{
		VehicleID:   f.duster.ID.Hex(),
		OfferingIDs: []string{f.vidange.ID.Hex(), f.freinage.ID.Hex()},
	})
	require.NoError(t, err)
	require.NotNil(t, q.VehicleType)
	assert.Equal(t, "SUV", q.VehicleType.Name)
	assert.Equal(t, 15.5, q.Lines[0].Supplement)
	assert.Equal(t, 75.5, q.Lines[0].LaborPrice)
	assert.InDelta(t, 155.6, q.Total, 1e-9)

	// The pad only fits a Clio
	assert.Empty(t, q.Lines[1].Parts)
	require.Len(t, q.Lines[0].Parts, 1)
	assert.Equal(t, 39.9, q.Lines[0].Parts[0].Price)
}

func TestQuote_InlineVehicleType(t *testing.T) {
	f := setup(t)
	q, err := f.engine.Quote(context.Background(), models.Claims{UserID: "m1", Role: models.RoleMechanic}, models.QuoteRequest{
		VehicleTypeID: f.suv.ID.Hex(),
		OfferingIDs:   []string{f.vidange.ID.Hex()},
	})
	require.NoError(t, err)
	assert.Nil(t, q.Vehicle)
	assert.Equal(t, 75.5, q.Total)
}

func TestQuote_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.engine.Quote(ctx, client, models.QuoteRequest{OfferingIDs: []string{f.vidange.ID.Hex()}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.engine.Quote(ctx, client, models.QuoteRequest{VehicleID: f.clio.ID.Hex()})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.engine.Quote(ctx, client, models.QuoteRequest{
		VehicleID:   f.clio.ID.Hex(),
		OfferingIDs: []string{f.vidange.ID.Hex(), f.vidange.ID.Hex()},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.engine.Quote(ctx, client, models.QuoteRequest{
		VehicleID:   f.clio.ID.Hex(),
		OfferingIDs: []string{primitive.NewObjectID().Hex()},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.engine.Quote(ctx, models.Claims{UserID: "client-2", Role: models.RoleClient}, models.QuoteRequest{
		VehicleID:   f.clio.ID.Hex(),
		OfferingIDs: []string{f.vidange.ID.Hex()},
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestQuote_SkipsDeletedParts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.store.Parts.DeletePart(ctx, f.pad.ID.Hex()))

	q, err := f.engine.Quote(ctx, client, models.QuoteRequest{
		VehicleID:   f.clio.ID.Hex(),
		OfferingIDs: []string{f.freinage.ID.Hex()},
	})
	require.NoError(t, err)
	assert.Empty(t, q.Lines[0].Parts)
	assert.Equal(t, 80.1, q.Total)
}

func TestOptions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	opts, err := f.engine.Options(ctx, models.Claims{UserID: "client-2", Role: models.RoleClient})
	require.NoError(t, err)
	assert.Empty(t, opts.Vehicles)
	assert.Len(t, opts.Offerings, 2)
	assert.Len(t, opts.VehicleTypes, 1)

	opts, err = f.engine.Options(ctx, models.Claims{UserID: "m", Role: models.RoleManager})
	require.NoError(t, err)
	assert.Len(t, opts.Vehicles, 2)
}
