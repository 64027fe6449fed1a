package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
)

// AuthHandler serves sign-up, sign-in and session endpoints.
type AuthHandler struct {
	users *service.UserService
	log   *zerolog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *service.UserService, log *zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: log}
}

// SignUp handles POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req model.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	sess, err := h.users.SignUp(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// SignIn handles POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	sess, err := h.users.SignIn(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// SignOut handles POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.users.SignOut(r.Context()); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.CurrentUser(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ListUsers handles GET /users
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser handles GET /users/{id}
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// SetRole handles PUT /users/{id}/role
func (h *AuthHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req model.SetRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	u, err := h.users.SetRole(r.Context(), actor(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ClubHandler serves club endpoints.
type ClubHandler struct {
	clubs *service.ClubService
	log   *zerolog.Logger
}

// NewClubHandler constructs a ClubHandler.
func NewClubHandler(clubs *service.ClubService, log *zerolog.Logger) *ClubHandler {
	return &ClubHandler{clubs: clubs, log: log}
}

// CreateClub handles POST /clubs
func (h *ClubHandler) CreateClub(w http.ResponseWriter, r *http.Request) {
	var req model.CreateClubRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	club, err := h.clubs.CreateClub(r.Context(), actor(r), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, club)
}

// ListClubs handles GET /clubs
func (h *ClubHandler) ListClubs(w http.ResponseWriter, r *http.Request) {
	clubs, err := h.clubs.ListClubs(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if clubs == nil {
		clubs = []model.Club{}
	}
	writeJSON(w, http.StatusOK, clubs)
}

// GetClub handles GET /clubs/{id}
func (h *ClubHandler) GetClub(w http.ResponseWriter, r *http.Request) {
	club, err := h.clubs.GetClub(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, club)
}

// UpdateClub handles PUT /clubs/{id}
func (h *ClubHandler) UpdateClub(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateClubRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	club, err := h.clubs.UpdateClub(r.Context(), actor(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, club)
}

// SetStatus handles PATCH /clubs/{id}/status
func (h *ClubHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req model.ClubStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	club, err := h.clubs.SetStatus(r.Context(), actor(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, club)
}
