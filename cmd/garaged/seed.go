package main

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/auth"
	"github.com/ukydev/garage-service/internal/catalog"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/events"
	"github.com/ukydev/garage-service/internal/models"
)

type seedOptions struct {
	ManagerEmail    string
	ManagerPassword string
}

func newSeedCmd(load loader) *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the manager account and a starter catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer closeStore()
			authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
			if err != nil {
				return err
			}
			return seed(cmd.Context(), store, authService, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ManagerEmail, "manager-email", "manager@garage.local", "manager login")
	cmd.Flags().StringVar(&opts.ManagerPassword, "manager-password", "", "manager password, at least 8 characters")
	_ = cmd.MarkFlagRequired("manager-password")
	return cmd
}

var seedVehicleTypes = []string{"Citadine", "SUV", "Utilitaire"}

// seed creates the manager account and, on an empty catalog, the vehicle
// types, parts and offerings below. Running it again changes nothing.
func seed(ctx context.Context, store *db.Store, authService *auth.Service, opts seedOptions) error {
	if err := seedManager(ctx, store.Users, authService, opts); err != nil {
		return err
	}

	existing, err := store.VehicleTypes.FindVehicleTypes(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.WithField("vehicle_types", len(existing)).Info("Catalog already seeded")
		return nil
	}

	vehicles := catalog.NewVehicleRegistry(store.Vehicles, store.VehicleTypes)
	types := make(map[string]string, len(seedVehicleTypes))
	for _, name := range seedVehicleTypes {
		vt, err := vehicles.CreateType(ctx, models.VehicleTypeRequest{Name: name})
		if err != nil {
			return err
		}
		types[name] = vt.ID.Hex()
	}

	parts := catalog.NewPartCatalog(store.Parts, store.Offerings, store.Vehicles, events.Nop{})
	stock := func(n int) *int { return &n }
	filter, err := parts.CreatePart(ctx, models.PartRequest{
		Name: "Filtre à huile",
		Compatibilities: []models.CompatibilityRequest{
			{Make: "Peugeot", Model: "208", Year: 2020, Price: 12, StockQuantity: 10, AlertThreshold: 3},
			{Make: "Renault", Model: "Clio", Year: 2019, Price: 11, StockQuantity: 6, AlertThreshold: 3},
			{Make: "Dacia", Model: "Duster", Year: 2022, Price: 14, StockQuantity: 4, AlertThreshold: 2},
		},
	})
	if err != nil {
		return err
	}
	oil, err := parts.CreatePart(ctx, models.PartRequest{
		Name: "Huile moteur 5W30",
		Variants: []models.VariantRequest{
			{VehicleTypeTag: "Citadine", Price: 30},
			{VehicleTypeTag: "SUV", Price: 38},
			{VehicleTypeTag: "Utilitaire", Price: 42},
		},
	})
	if err != nil {
		return err
	}
	pads, err := parts.CreatePart(ctx, models.PartRequest{
		Name: "Plaquettes de frein avant",
		Variants: []models.VariantRequest{
			{VehicleTypeTag: "Citadine", Price: 35, StockQuantity: stock(8), AlertThreshold: stock(2)},
			{VehicleTypeTag: "SUV", Price: 48, StockQuantity: stock(4), AlertThreshold: stock(2)},
		},
	})
	if err != nil {
		return err
	}

	offerings := catalog.NewServiceCatalog(store.Offerings, store.Parts, store.VehicleTypes)
	requests := []models.OfferingRequest{
		{
			Name:           "Vidange",
			Description:    "Vidange moteur et remplacement du filtre",
			BaseLaborPrice: 40,
			Steps: []models.RepairStepRequest{
				{Label: "Remplacer le filtre à huile", CandidatePartIDs: []string{filter.ID.Hex()}},
				{Label: "Faire le plein d'huile", CandidatePartIDs: []string{oil.ID.Hex()}},
			},
			Supplements: []models.SupplementRequest{
				{VehicleTypeID: types["SUV"], Amount: 10},
				{VehicleTypeID: types["Utilitaire"], Amount: 15},
			},
		},
		{
			Name:           "Freinage",
			Description:    "Remplacement des plaquettes de frein avant",
			BaseLaborPrice: 60,
			Steps: []models.RepairStepRequest{
				{Label: "Remplacer les plaquettes", CandidatePartIDs: []string{pads.ID.Hex()}},
			},
			Supplements: []models.SupplementRequest{{VehicleTypeID: types["SUV"], Amount: 20}},
		},
		{
			Name:           "Diagnostic",
			Description:    "Diagnostic électronique complet",
			BaseLaborPrice: 45,
		},
	}
	for _, req := range requests {
		if _, err := offerings.CreateOffering(ctx, req); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"vehicle_types": len(seedVehicleTypes),
		"parts":         3,
		"offerings":     len(requests),
	}).Info("Catalog seeded")
	return nil
}

func seedManager(ctx context.Context, users db.UserCollection, authService *auth.Service, opts seedOptions) error {
	email := strings.ToLower(strings.TrimSpace(opts.ManagerEmail))
	if err := authService.ValidateEmail(email); err != nil {
		return err
	}
	if err := authService.ValidatePassword(opts.ManagerPassword); err != nil {
		return err
	}
	if _, err := users.FindUserByEmail(ctx, email); err == nil {
		log.WithField("email", email).Info("Manager account already exists")
		return nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	hash, err := authService.HashPassword(opts.ManagerPassword)
	if err != nil {
		return err
	}
	now := time.Now()
	manager := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleManager,
		FirstName:    "Garage",
		LastName:     "Manager",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.InsertUser(ctx, manager); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": manager.ID.Hex(), "email": email}).Info("Manager account created")
	return nil
}
