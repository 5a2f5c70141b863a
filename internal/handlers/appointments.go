package handlers

import (
	"net/http"

	"github.com/ukydev/garage-service/internal/lifecycle"
	"github.com/ukydev/garage-service/internal/models"
)

// AppointmentHandler exposes the appointment lifecycle.
type AppointmentHandler struct {
	lifecycle *lifecycle.Service
}

func NewAppointmentHandler(svc *lifecycle.Service) *AppointmentHandler {
	return &AppointmentHandler{lifecycle: svc}
}

// withPrincipal decodes the optional body into req and runs fn with the
// caller, writing the result with status.
func withPrincipal[Req any](status int, optional bool, fn func(r *http.Request, p models.Claims, req Req) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req Req
		if err := decode(r, &req, optional); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := fn(r, p, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, status, out)
	}
}

// empty is the request type of endpoints that take no body.
type empty struct{}

func (h *AppointmentHandler) Book() http.HandlerFunc {
	return withPrincipal(http.StatusCreated, false, func(r *http.Request, p models.Claims, req models.BookingRequest) (any, error) {
		return h.lifecycle.Book(r.Context(), p, req)
	})
}

// List handles GET /appointments?client_id=&mechanic_id=&from=&to=&q=.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	query := lifecycle.ListQuery{
		AppointmentFilter: models.AppointmentFilter{
			ClientID:   q.Get("client_id"),
			MechanicID: q.Get("mechanic_id"),
		},
		Query: q.Get("q"),
	}
	if query.From, err = queryTime(r, "from", false); err != nil {
		writeError(w, r, err)
		return
	}
	if query.To, err = queryTime(r, "to", true); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.lifecycle.List(r.Context(), p, query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AppointmentHandler) Get() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, p models.Claims, _ empty) (any, error) {
		return h.lifecycle.Get(r.Context(), p, r.PathValue("id"))
	})
}

func (h *AppointmentHandler) Tracking() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, p models.Claims, _ empty) (any, error) {
		return h.lifecycle.Tracking(r.Context(), p, r.PathValue("id"))
	})
}

func (h *AppointmentHandler) MechanicAppointments() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, p models.Claims, _ empty) (any, error) {
		return h.lifecycle.MechanicAppointments(r.Context(), p)
	})
}

func (h *AppointmentHandler) AssignMechanic() http.HandlerFunc {
	return withPrincipal(http.StatusOK, false, func(r *http.Request, p models.Claims, req models.AssignMechanicRequest) (any, error) {
		return h.lifecycle.AssignMechanic(r.Context(), p, r.PathValue("id"), req)
	})
}

func (h *AppointmentHandler) Reschedule() http.HandlerFunc {
	return withPrincipal(http.StatusOK, false, func(r *http.Request, p models.Claims, req models.RescheduleRequest) (any, error) {
		return h.lifecycle.Reschedule(r.Context(), p, r.PathValue("id"), req)
	})
}

func (h *AppointmentHandler) Start() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, p models.Claims, req models.StartServiceRequest) (any, error) {
		return h.lifecycle.Start(r.Context(), p, r.PathValue("id"), req)
	})
}

func (h *AppointmentHandler) Complete() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, p models.Claims, _ empty) (any, error) {
		return h.lifecycle.Complete(r.Context(), p, r.PathValue("id"), r.PathValue("instanceId"))
	})
}

func (h *AppointmentHandler) Cancel() http.HandlerFunc {
	return withPrincipal(http.StatusOK, true, func(r *http.Request, p models.Claims, req models.CancelServiceRequest) (any, error) {
		return h.lifecycle.Cancel(r.Context(), p, r.PathValue("id"), r.PathValue("instanceId"), req)
	})
}

func (h *AppointmentHandler) AddService() http.HandlerFunc {
	return withPrincipal(http.StatusCreated, false, func(r *http.Request, p models.Claims, req models.AddServiceRequest) (any, error) {
		return h.lifecycle.AddService(r.Context(), p, r.PathValue("id"), req)
	})
}

func (h *AppointmentHandler) Review() http.HandlerFunc {
	return withPrincipal(http.StatusOK, false, func(r *http.Request, p models.Claims, req models.ReviewRequest) (any, error) {
		return h.lifecycle.Review(r.Context(), p, r.PathValue("id"), req)
	})
}
