package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/models"
)

type api struct {
	t        *testing.T
	handler  http.Handler
	store    *db.Store
	client   string
	mechanic string
	manager  string
	mechID   string
	vehicle  *models.Vehicle
	vidange  *models.ServiceOffering
	freinage *models.ServiceOffering
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()
	authService := newAuthService(t)
	store := db.NewMemoryStore()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	a := &api{t: t, store: store}
	a.handler = NewRouter(RouterConfig{
		Store:             store,
		Auth:              authService,
		Clock:             func() time.Time { return now },
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
	})

	mech := &models.User{Email: "meca@garage.test", Role: models.RoleMechanic, IsActive: true}
	require.NoError(t, store.Users.InsertUser(ctx, mech))
	a.mechID = mech.ID.Hex()

	issue := func(c models.Claims) string {
		token, err := authService.IssueToken(c)
		require.NoError(t, err)
		return token
	}
	a.client = issue(models.Claims{UserID: "client-1", Role: models.RoleClient})
	a.mechanic = issue(models.Claims{UserID: a.mechID, Role: models.RoleMechanic})
	a.manager = issue(models.Claims{UserID: "manager-1", Role: models.RoleManager})

	a.vehicle = &models.Vehicle{ClientID: "client-1", Make: "Peugeot", Model: "208", Year: 2020}
	require.NoError(t, store.Vehicles.InsertVehicle(ctx, a.vehicle))
	a.vidange = &models.ServiceOffering{Name: "Vidange", Description: "Vidange moteur", BaseLaborPrice: 60}
	a.freinage = &models.ServiceOffering{Name: "Freinage", Description: "Plaquettes avant", BaseLaborPrice: 80}
	require.NoError(t, store.Offerings.InsertOffering(ctx, a.vidange))
	require.NoError(t, store.Offerings.InsertOffering(ctx, a.freinage))
	return a
}

func (a *api) do(method, path, token, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decodeInto[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *api) book() models.Appointment {
	a.t.Helper()
	w := a.do("POST", "/api/appointments", a.client, `{
		"vehicle_id": "`+a.vehicle.ID.Hex()+`",
		"date_time": "2026-03-03T09:00:00Z",
		"service_offering_ids": ["`+a.vidange.ID.Hex()+`", "`+a.freinage.ID.Hex()+`"]
	}`)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decodeInto[models.Appointment](a.t, w)
}

func TestRouter_PublicAndAuthenticated(t *testing.T) {
	a := newAPI(t)

	w := a.do("GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = a.do("GET", "/api/appointments", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorCode(t, w))

	w = a.do("POST", "/api/auth/register", "", `{"email":"new@garage.test","password":"password123","first_name":"Nomena","last_name":"Rabe"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = a.do("POST", "/api/auth/login", "", `{"email":"new@garage.test","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	login := decodeInto[models.LoginResponse](t, w)

	w = a.do("GET", "/api/auth/profile", login.Token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "new@garage.test")
}

func TestRouter_AppointmentFlow(t *testing.T) {
	a := newAPI(t)
	appt := a.book()
	id := appt.ID.Hex()
	assert.Equal(t, models.AppointmentPending, appt.Status)
	require.Len(t, appt.Services, 2)

	w := a.do("PATCH", "/api/appointments/"+id+"/assign-mechanic", a.client, `{"mechanic_id":"`+a.mechID+`"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do("PATCH", "/api/appointments/"+id+"/assign-mechanic", a.manager, `{"mechanic_id":"`+a.mechID+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.AppointmentConfirmed, decodeInto[models.Appointment](t, w).Status)

	w = a.do("PATCH", "/api/appointments/"+id+"/start", a.mechanic, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	started := decodeInto[models.TransitionResult](t, w)
	assert.Equal(t, appt.Services[0].ID.Hex(), started.Instance.ID)
	assert.Equal(t, models.ServiceInProgress, started.Instance.CurrentStatus)
	assert.Equal(t, models.AppointmentInProgress, started.Appointment.Status)

	second := appt.Services[1].ID.Hex()
	w = a.do("PATCH", "/api/appointments/"+id+"/services/"+second+"/complete", a.mechanic, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state", errorCode(t, w))

	first := appt.Services[0].ID.Hex()
	w = a.do("PATCH", "/api/appointments/"+id+"/services/"+first+"/complete", a.mechanic, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do("PATCH", "/api/appointments/"+id+"/services/"+second+"/cancel", a.mechanic, `{"reason":"client request"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decodeInto[models.TransitionResult](t, w)
	assert.Equal(t, "client request", cancelled.Instance.Reason)
	assert.Equal(t, models.AppointmentCompleted, cancelled.Appointment.Status)

	w = a.do("PUT", "/api/appointments/"+id+"/review", a.client, `{"rating":5,"comment":"Rapide"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do("GET", "/api/appointments/"+id+"/tracking", a.client, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, decodeInto[models.AppointmentTracking](t, w).Progression)

	w = a.do("GET", "/api/mechanic/appointments", a.mechanic, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[[]models.AppointmentSummary](t, w), 1)

	w = a.do("GET", "/api/stats/mechanic/"+a.mechID, a.mechanic, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeInto[models.MechanicStats](t, w).ServicesCompleted)
}

func TestRouter_BookingErrors(t *testing.T) {
	a := newAPI(t)

	w := a.do("POST", "/api/appointments", a.mechanic, `{}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do("POST", "/api/appointments", a.client, `{"vehicle_id":"`+a.vehicle.ID.Hex()+`","date_time":"2026-03-03T09:00:00Z","service_offering_ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do("POST", "/api/appointments", a.client, `{"vehicleId":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorCode(t, w))

	w = a.do("GET", "/api/appointments/not-an-id", a.client, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do("GET", "/api/appointments/0123456789abcdef01234567", a.client, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ListAppointments(t *testing.T) {
	a := newAPI(t)
	a.book()

	w := a.do("GET", "/api/appointments?q=peugeot+vidange", a.manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[[]models.AppointmentSummary](t, w), 1)

	w = a.do("GET", "/api/appointments?from=2026-03-04", a.manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeInto[[]models.AppointmentSummary](t, w))

	w = a.do("GET", "/api/appointments?from=yesterday", a.manager, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_QuotesAndStats(t *testing.T) {
	a := newAPI(t)
	a.book()

	w := a.do("POST", "/api/quotes", a.client, `{"vehicle_id":"`+a.vehicle.ID.Hex()+`","offering_ids":["`+a.vidange.ID.Hex()+`","`+a.freinage.ID.Hex()+`"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 140.0, decodeInto[models.Quote](t, w).Total)

	w = a.do("GET", "/api/quotes/options", a.client, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[models.QuoteOptions](t, w).Vehicles, 1)

	w = a.do("GET", "/api/stats/general", a.client, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do("GET", "/api/stats/general", a.manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	general := decodeInto[models.GeneralStats](t, w)
	assert.Equal(t, 1, general.TotalAppointments)
	assert.Equal(t, 1, general.TotalMechanics)

	w = a.do("GET", "/api/stats/revenue?from=2026-03-01&to=2026-03-31", a.manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 140.0, decodeInto[models.RevenueReport](t, w).Total)

	w = a.do("GET", "/api/stats/revenue?from=2026-03-31&to=2026-03-01", a.manager, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do("GET", "/api/stats/top-offerings?limit=1", a.manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[[]models.TopOffering](t, w), 1)

	w = a.do("GET", "/api/stats/low-stock", a.manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decodeInto[models.LowStockReport](t, w).TotalAlert)
}

func TestRouter_Catalog(t *testing.T) {
	a := newAPI(t)

	w := a.do("POST", "/api/vehicle-types", a.manager, `{"name":"Utilitaire"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	vt := decodeInto[models.VehicleType](t, w)

	w = a.do("POST", "/api/parts", a.client, `{"name":"Filtre"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do("POST", "/api/parts", a.manager, `{"name":"Filtre à huile","compatibilities":[{"make":"Peugeot","model":"208","year":2020,"price":12.5,"stock_quantity":1,"alert_threshold":2}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	part := decodeInto[models.Part](t, w)

	w = a.do("GET", "/api/parts?q=filtre+a+huile", a.client, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[[]models.Part](t, w), 1)

	w = a.do("GET", "/api/parts/low-stock", a.mechanic, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeInto[models.LowStockReport](t, w).TotalAlert)

	w = a.do("POST", "/api/offerings", a.manager, `{
		"name":"Diagnostic",
		"description":"Diagnostic électronique",
		"base_labor_price":40,
		"steps":[{"label":"Lecture","candidate_part_ids":["`+part.ID.Hex()+`"]}],
		"supplements":[{"vehicle_type_id":"`+vt.ID.Hex()+`","amount":10}]
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	offering := decodeInto[models.ServiceOffering](t, w)

	w = a.do("GET", "/api/offerings/"+offering.ID.Hex()+"/labor-price?vehicle_type_id="+vt.ID.Hex(), a.client, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]float64{"labor_price": 50}, decodeInto[map[string]float64](t, w))

	w = a.do("DELETE", "/api/parts/"+part.ID.Hex(), a.manager, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do("GET", "/api/offerings/"+offering.ID.Hex(), a.client, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeInto[models.ServiceOffering](t, w).Steps[0].CandidatePartIDs)

	w = a.do("POST", "/api/vehicles", a.client, `{"make":"Renault","model":"Kangoo","year":2015,"type_id":"`+vt.ID.Hex()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "client-1", decodeInto[models.Vehicle](t, w).ClientID)

	w = a.do("GET", "/api/vehicles?client_id=someone-else", a.client, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[[]models.Vehicle](t, w), 2)
}
