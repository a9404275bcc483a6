package handlers

import (
	"net/http"
	"time"

	"github.com/clinicbook/clinic-booking/internal/http/middleware"
	"github.com/clinicbook/clinic-booking/internal/http/respond"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// AdminLoginHandler exchanges the admin password for a session token.
type AdminLoginHandler struct {
	password  string
	jwtSecret string
	ttl       time.Duration
	now       func() time.Time
	logger    *logging.Logger
}

// NewAdminLoginHandler creates a login handler. Without a JWT secret a successful
// login returns no token and the client keeps sending the password as its bearer.
func NewAdminLoginHandler(password, jwtSecret string, ttl time.Duration, logger *logging.Logger) *AdminLoginHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AdminLoginHandler{
		password:  password,
		jwtSecret: jwtSecret,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Login POST /api/admin/login
func (h *AdminLoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.logger, err, "login failed")
		return
	}
	if h.password == "" || !middleware.PasswordMatches(h.password, req.Password) {
		h.logger.Warn("admin login rejected", "remote_ip", r.RemoteAddr)
		respond.JSON(w, http.StatusUnauthorized, loginResponse{Success: false, Message: "invalid password"})
		return
	}

	resp := loginResponse{Success: true}
	if h.jwtSecret != "" {
		now := h.now()
		token, err := middleware.IssueAdminToken(h.jwtSecret, h.ttl, now)
		if err != nil {
			respond.Error(w, h.logger, err, "login failed")
			return
		}
		resp.Token = token
		resp.ExpiresAt = now.Add(h.ttl).UTC().Format(time.RFC3339)
	}
	respond.JSON(w, http.StatusOK, resp)
}
