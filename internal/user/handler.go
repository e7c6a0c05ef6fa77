package user

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler exposes HTTP endpoints for user operations (signup / login / verification).
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// SignupResponse response body containing new user id.
type SignupResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		case errors.Is(err, ErrUserExists):
			h.writeJSON(w, http.StatusConflict, map[string]string{"error": "user already exists, you can login"})
		default:
			h.logger.Warnw("signup failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "signup failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, SignupResponse{ID: u.ID, Message: "signup successful"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	view, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.logger.Debugw("login failed", "err", err)
		switch {
		case errors.Is(err, ErrBadCredentials):
			h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "authentication failed: email or password is wrong"})
		case errors.Is(err, ErrLocked):
			h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "account locked"})
		default:
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

var verificationPage = template.Must(template.New("mail-verification").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Mail verification</title></head>
<body><h2>{{.}}</h2></body>
</html>`))

// VerifyEmail renders the landing page of the verification link.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	status, msg := http.StatusOK, "Mail verified successfully!"
	if err := h.svc.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		if errors.Is(err, ErrUnknownToken) {
			status, msg = http.StatusNotFound, "Invalid token or user not found"
		} else {
			h.logger.Errorw("mail verification failed", "err", err)
			status, msg = http.StatusInternalServerError, "Internal server error"
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = verificationPage.Execute(w, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
