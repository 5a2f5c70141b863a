package handlers

import (
	"net/http"

	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/catalog"
	"github.com/ukydev/garage-service/internal/models"
)

// CatalogHandler exposes parts, service offerings, vehicle types and
// client vehicles.
type CatalogHandler struct {
	parts     *catalog.PartCatalog
	offerings *catalog.ServiceCatalog
	vehicles  *catalog.VehicleRegistry
}

func NewCatalogHandler(parts *catalog.PartCatalog, offerings *catalog.ServiceCatalog, vehicles *catalog.VehicleRegistry) *CatalogHandler {
	return &CatalogHandler{parts: parts, offerings: offerings, vehicles: vehicles}
}

func (h *CatalogHandler) CreatePart() http.HandlerFunc {
	return withPrincipal(http.StatusCreated, false, func(r *http.Request, _ models.Claims, req models.PartRequest) (any, error) {
		return h.parts.CreatePart(r.Context(), req)
	})
}

// ListParts lists every part, or those matching ?q word by word.
func (h *CatalogHandler) ListParts() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		if q := r.URL.Query().Get("q"); q != "" {
			return h.parts.SearchByText(r.Context(), q)
		}
		return h.parts.ListParts(r.Context())
	})
}

func (h *CatalogHandler) GetPart() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		return h.parts.GetPart(r.Context(), r.PathValue("id"))
	})
}

func (h *CatalogHandler) DeletePart(w http.ResponseWriter, r *http.Request) {
	if err := h.parts.RemovePart(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) SetStock() http.HandlerFunc {
	return withPrincipal(http.StatusOK, false, func(r *http.Request, _ models.Claims, req models.StockUpdateRequest) (any, error) {
		return h.parts.SetStock(r.Context(), r.PathValue("id"), req)
	})
}

func (h *CatalogHandler) LowStock() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		return h.parts.ListLowStock(r.Context())
	})
}

func (h *CatalogHandler) CreateOffering() http.HandlerFunc {
	return withPrincipal(http.StatusCreated, false, func(r *http.Request, _ models.Claims, req models.OfferingRequest) (any, error) {
		return h.offerings.CreateOffering(r.Context(), req)
	})
}

func (h *CatalogHandler) UpdateOffering() http.HandlerFunc {
	return withPrincipal(http.StatusOK, false, func(r *http.Request, _ models.Claims, req models.OfferingRequest) (any, error) {
		return h.offerings.UpdateOffering(r.Context(), r.PathValue("id"), req)
	})
}

func (h *CatalogHandler) ListOfferings() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		return h.offerings.ListOfferings(r.Context())
	})
}

func (h *CatalogHandler) GetOffering() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		return h.offerings.GetOffering(r.Context(), r.PathValue("id"))
	})
}

func (h *CatalogHandler) DeleteOffering(w http.ResponseWriter, r *http.Request) {
	if err := h.offerings.DeleteOffering(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LaborPrice handles GET /offerings/{id}/labor-price?vehicle_type_id=.
func (h *CatalogHandler) LaborPrice() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		price, err := h.offerings.LaborPriceFor(r.Context(), r.PathValue("id"), r.URL.Query().Get("vehicle_type_id"))
		if err != nil {
			return nil, err
		}
		return map[string]float64{"labor_price": price}, nil
	})
}

func (h *CatalogHandler) CreateVehicleType() http.HandlerFunc {
	return withPrincipal(http.StatusCreated, false, func(r *http.Request, _ models.Claims, req models.VehicleTypeRequest) (any, error) {
		return h.vehicles.CreateType(r.Context(), req)
	})
}

func (h *CatalogHandler) ListVehicleTypes() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, _ models.Claims, _ empty) (any, error) {
		return h.vehicles.ListTypes(r.Context())
	})
}

// RegisterVehicle registers a vehicle for the calling client, or for
// req.ClientID when staff registers it.
func (h *CatalogHandler) RegisterVehicle() http.HandlerFunc {
	return withPrincipal(http.StatusCreated, false, func(r *http.Request, p models.Claims, req models.VehicleRequest) (any, error) {
		clientID := req.ClientID
		if p.Role == models.RoleClient {
			if clientID != "" && clientID != p.UserID {
				return nil, apperr.Forbidden("clients can only register their own vehicles")
			}
			clientID = p.UserID
		}
		return h.vehicles.Register(r.Context(), clientID, req)
	})
}

// ListVehicles lists the caller's vehicles. Staff may pass ?client_id or
// list every vehicle.
func (h *CatalogHandler) ListVehicles() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, p models.Claims, _ empty) (any, error) {
		clientID := r.URL.Query().Get("client_id")
		if p.Role == models.RoleClient {
			clientID = p.UserID
		}
		return h.vehicles.List(r.Context(), clientID)
	})
}
