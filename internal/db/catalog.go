package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var byName = options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

// MongoPartCollection implements PartCollection for MongoDB.
type MongoPartCollection struct {
	Collection *mongo.Collection
}

// InsertPart inserts a part, assigning its ID when unset.
func (c *MongoPartCollection) InsertPart(ctx context.Context, part *models.Part) error {
	if part.ID.IsZero() {
		part.ID = primitive.NewObjectID()
	}
	now := time.Now()
	part.CreatedAt, part.UpdatedAt = now, now
	return insertOne(ctx, c.Collection, "part", part)
}

func (c *MongoPartCollection) FindParts(ctx context.Context) ([]models.Part, error) {
	return findAll[models.Part](ctx, c.Collection, bson.M{}, byName)
}

func (c *MongoPartCollection) FindPartByID(ctx context.Context, id string) (*models.Part, error) {
	return findOne[models.Part](ctx, c.Collection, "part", id)
}

func (c *MongoPartCollection) UpdatePart(ctx context.Context, part *models.Part) error {
	part.UpdatedAt = time.Now()
	return replaceOne(ctx, c.Collection, "part", part.ID, part)
}

func (c *MongoPartCollection) DeletePart(ctx context.Context, id string) error {
	return deleteOne(ctx, c.Collection, "part", id)
}

// MongoOfferingCollection implements OfferingCollection for MongoDB.
type MongoOfferingCollection struct {
	Collection *mongo.Collection
}

func (c *MongoOfferingCollection) InsertOffering(ctx context.Context, offering *models.ServiceOffering) error {
	if offering.ID.IsZero() {
		offering.ID = primitive.NewObjectID()
	}
	now := time.Now()
	offering.CreatedAt, offering.UpdatedAt = now, now
	return insertOne(ctx, c.Collection, "offering", offering)
}

func (c *MongoOfferingCollection) FindOfferings(ctx context.Context) ([]models.ServiceOffering, error) {
	return findAll[models.ServiceOffering](ctx, c.Collection, bson.M{}, byName)
}

func (c *MongoOfferingCollection) FindOfferingByID(ctx context.Context, id string) (*models.ServiceOffering, error) {
	return findOne[models.ServiceOffering](ctx, c.Collection, "offering", id)
}

func (c *MongoOfferingCollection) UpdateOffering(ctx context.Context, offering *models.ServiceOffering) error {
	offering.UpdatedAt = time.Now()
	return replaceOne(ctx, c.Collection, "offering", offering.ID, offering)
}

func (c *MongoOfferingCollection) DeleteOffering(ctx context.Context, id string) error {
	return deleteOne(ctx, c.Collection, "offering", id)
}

// PullCandidatePart removes partID from the candidate list of every step.
func (c *MongoOfferingCollection) PullCandidatePart(ctx context.Context, partID primitive.ObjectID) (int64, error) {
	if c.Collection == nil {
		return 0, errNilCollection
	}
	result, err := c.Collection.UpdateMany(ctx,
		bson.M{"steps.candidate_part_ids": partID},
		bson.M{
			"$pull": bson.M{"steps.$[].candidate_part_ids": partID},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("pull part %s from offerings: %w", partID.Hex(), err)
	}
	return result.ModifiedCount, nil
}

// MongoVehicleTypeCollection implements VehicleTypeCollection for MongoDB.
type MongoVehicleTypeCollection struct {
	Collection *mongo.Collection
}

func (c *MongoVehicleTypeCollection) InsertVehicleType(ctx context.Context, vt *models.VehicleType) error {
	if vt.ID.IsZero() {
		vt.ID = primitive.NewObjectID()
	}
	vt.CreatedAt = time.Now()
	return insertOne(ctx, c.Collection, "vehicle type "+vt.Name, vt)
}

func (c *MongoVehicleTypeCollection) FindVehicleTypes(ctx context.Context) ([]models.VehicleType, error) {
	return findAll[models.VehicleType](ctx, c.Collection, bson.M{}, byName)
}

func (c *MongoVehicleTypeCollection) FindVehicleTypeByID(ctx context.Context, id string) (*models.VehicleType, error) {
	return findOne[models.VehicleType](ctx, c.Collection, "vehicle type", id)
}

// MongoVehicleCollection implements VehicleCollection for MongoDB.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	vehicle.CreatedAt = time.Now()
	return insertOne(ctx, c.Collection, "vehicle", vehicle)
}

// FindVehicles queries vehicle records, optionally for one client.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context, clientID string) ([]models.Vehicle, error) {
	filter := bson.M{}
	if clientID != "" {
		filter["client_id"] = clientID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findAll[models.Vehicle](ctx, c.Collection, filter, opts)
}

// FindVehicleByID finds a vehicle by its ID.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	return findOne[models.Vehicle](ctx, c.Collection, "vehicle", id)
}
