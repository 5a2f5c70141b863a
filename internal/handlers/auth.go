package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-service/internal/apperr"
	"github.com/ukydev/garage-service/internal/auth"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/models"
)

// AuthHandler handles accounts and sessions.
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, r, apperr.Validation("email and password are required"))
		return
	}

	user, err := h.userCollection.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = auth.ErrInvalidCredentials
		}
		writeError(w, r, err)
		return
	}
	if !user.IsActive {
		writeError(w, r, auth.ErrUserInactive)
		return
	}
	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, r, auth.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// Register creates a client account and signs it in. Staff accounts are
// created by the manager through CreateUser.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleClient
	}
	if req.Role != models.RoleClient {
		writeError(w, r, apperr.Forbidden("staff accounts are created by the manager"))
		return
	}

	user, err := h.create(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.LoginResponse{Token: token, User: *user})
}

// CreateUser creates an account of any role.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.create(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) create(r *http.Request, req models.RegisterRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.authService.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := h.authService.ValidateName("first name", req.FirstName); err != nil {
		return nil, err
	}
	if err := h.authService.ValidateName("last name", req.LastName); err != nil {
		return nil, err
	}
	if !models.IsValidRole(req.Role) {
		return nil, apperr.Validation("invalid role %q", req.Role)
	}

	if _, err := h.userCollection.FindUserByEmail(r.Context(), req.Email); err == nil {
		return nil, apperr.Conflict("email %s is already registered", req.Email)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        req.Phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": user.ID.Hex(), "role": user.Role}).Info("User created")
	return user, nil
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.userCollection.FindUserByID(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListUsers lists accounts, optionally of one ?role.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := models.Role(r.URL.Query().Get("role"))
	if role != "" && !models.IsValidRole(role) {
		writeError(w, r, apperr.Validation("invalid role %q", role))
		return
	}
	users, err := h.userCollection.FindUsers(r.Context(), role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// DeleteUser removes an account. Managers cannot remove themselves.
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if id == p.UserID {
		writeError(w, r, apperr.Validation("you cannot delete your own account"))
		return
	}
	if err := h.userCollection.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	log.WithFields(log.Fields{"user_id": id, "deleted_by": p.UserID}).Info("User deleted")
	w.WriteHeader(http.StatusNoContent)
}
