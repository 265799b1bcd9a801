package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"commissioner/internal/api/respond"
	"commissioner/internal/docstore"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new account.
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to hash password")
		return
	}

	if err := h.docs.CreateAccount(r.Context(), req.Username, string(hash)); err != nil {
		if errors.Is(err, docstore.ErrDuplicateAccount) {
			respond.WriteError(w, http.StatusConflict, "DUPLICATE_USER", "Username already exists")
			return
		}
		h.logger.Error("account creation failed", "user", req.Username, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to create account")
		return
	}

	h.logger.Info("Account created", "user", req.Username)
	respond.WriteJSONObject(w, http.StatusCreated, map[string]interface{}{"user": req.Username})
}

// Login verifies credentials and opens the session. Logging in replaces
// any previously active session.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} respond.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	hash, err := h.docs.AccountHash(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, docstore.ErrUnknownAccount) {
			respond.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
			return
		}
		h.logger.Error("account lookup failed", "user", req.Username, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to load account")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		respond.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
		return
	}

	if err := h.sessions.Open(r.Context(), req.Username); err != nil {
		h.logger.Error("session open failed", "user", req.Username, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to open session")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"user": req.Username})
}

// Logout closes the active session.
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context()); err != nil {
		h.logger.Error("session close failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to close session")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"active": false})
}

// Session reports who is logged in.
// @Summary Current session
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if user, ok := h.sessions.CurrentUser(); ok {
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"active": true, "user": user})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"active": false})
}
