package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/garage-service/internal/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	PartsCollection        = "parts"
	OfferingsCollection    = "offerings"
	VehicleTypesCollection = "vehicle_types"
	VehiclesCollection     = "vehicles"
	AppointmentsCollection = "appointments"
	UsersCollection        = "users"
)

var errNilCollection = errors.New("mongo collection is nil")

// ConnectMongo connects to MongoDB at uri and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// NewMongoStore wires every collection of database.
func NewMongoStore(database *mongo.Database) *Store {
	return &Store{
		Parts:        &MongoPartCollection{Collection: database.Collection(PartsCollection)},
		Offerings:    &MongoOfferingCollection{Collection: database.Collection(OfferingsCollection)},
		VehicleTypes: &MongoVehicleTypeCollection{Collection: database.Collection(VehicleTypesCollection)},
		Vehicles:     &MongoVehicleCollection{Collection: database.Collection(VehiclesCollection)},
		Appointments: &MongoAppointmentCollection{Collection: database.Collection(AppointmentsCollection)},
		Users:        &MongoUserCollection{Collection: database.Collection(UsersCollection)},
	}
}

// EnsureIndexes creates the indexes the queries rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		VehicleTypesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		VehiclesCollection: {
			{Keys: bson.D{{Key: "client_id", Value: 1}}},
		},
		AppointmentsCollection: {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "scheduled_at", Value: 1}}},
			{Keys: bson.D{{Key: "mechanic_id", Value: 1}, {Key: "scheduled_at", Value: 1}}},
			{Keys: bson.D{{Key: "scheduled_at", Value: 1}}},
		},
		OfferingsCollection: {
			{Keys: bson.D{{Key: "steps.candidate_part_ids", Value: 1}}},
		},
	}
	for name, indexes := range specs {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// parseID converts a hex id, reporting malformed ids as validation errors.
func parseID(what, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid %s id %q", what, id)
	}
	return oid, nil
}

func findErr(err error, what, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(what, id)
	}
	return fmt.Errorf("find %s %s: %w", what, id, err)
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	if coll == nil {
		return nil, errNilCollection
	}
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, what, id string) (*T, error) {
	if coll == nil {
		return nil, errNilCollection
	}
	oid, err := parseID(what, id)
	if err != nil {
		return nil, err
	}
	var out T
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&out); err != nil {
		return nil, findErr(err, what, id)
	}
	return &out, nil
}

func replaceOne(ctx context.Context, coll *mongo.Collection, what string, id primitive.ObjectID, doc any) error {
	if coll == nil {
		return errNilCollection
	}
	result, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return fmt.Errorf("replace %s %s: %w", what, id.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound(what, id.Hex())
	}
	return nil
}

func deleteOne(ctx context.Context, coll *mongo.Collection, what, id string) error {
	if coll == nil {
		return errNilCollection
	}
	oid, err := parseID(what, id)
	if err != nil {
		return err
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", what, id, err)
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound(what, id)
	}
	return nil
}

func insertOne(ctx context.Context, coll *mongo.Collection, what string, doc any) error {
	if coll == nil {
		return errNilCollection
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("%s already exists", what)
		}
		return fmt.Errorf("insert %s: %w", what, err)
	}
	return nil
}
