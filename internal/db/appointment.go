package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAppointmentCollection implements AppointmentCollection for MongoDB.
type MongoAppointmentCollection struct {
	Collection *mongo.Collection
}

func (c *MongoAppointmentCollection) InsertAppointment(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID.IsZero() {
		appointment.ID = primitive.NewObjectID()
	}
	appointment.Version = 1
	return insertOne(ctx, c.Collection, "appointment", appointment)
}

func (c *MongoAppointmentCollection) FindAppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	return findOne[models.Appointment](ctx, c.Collection, "appointment", id)
}

// FindAppointments lists appointments matching filter, by scheduled time.
func (c *MongoAppointmentCollection) FindAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	query := bson.M{}
	if filter.ClientID != "" {
		query["client_id"] = filter.ClientID
	}
	if filter.MechanicID != "" {
		query["mechanic_id"] = filter.MechanicID
	}
	if filter.From != nil || filter.To != nil {
		window := bson.M{}
		if filter.From != nil {
			window["$gte"] = *filter.From
		}
		if filter.To != nil {
			window["$lte"] = *filter.To
		}
		query["scheduled_at"] = window
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.Appointment](ctx, c.Collection, query, opts)
}

// ReplaceAppointment writes appointment if nobody else changed it since it was read.
func (c *MongoAppointmentCollection) ReplaceAppointment(ctx context.Context, appointment *models.Appointment) error {
	if c.Collection == nil {
		return errNilCollection
	}
	read := appointment.Version
	appointment.Version = read + 1
	appointment.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": appointment.ID, "version": read}, appointment)
	if err != nil {
		appointment.Version = read
		return fmt.Errorf("replace appointment %s: %w", appointment.ID.Hex(), err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	appointment.Version = read
	n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": appointment.ID})
	if err != nil {
		return fmt.Errorf("count appointment %s: %w", appointment.ID.Hex(), err)
	}
	if n == 0 {
		return apperr.NotFound("appointment", appointment.ID.Hex())
	}
	return apperr.Conflict("appointment %s was modified concurrently, reload it and retry", appointment.ID.Hex())
}
