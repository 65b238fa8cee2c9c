package httpapi

import (
	"net/http"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/middleware"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	res, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req dashauth.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	u, err := h.engine.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, u)
}

// logout revokes the session the bearer token belongs to.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	if err := h.engine.RevokeSession(r.Context(), id.Claims.UserID, id.Claims.SessionID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "signed out")
}

type resetRequest struct {
	Email string `json:"email"`
}

func (h *Handler) resetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	ticket, err := h.engine.RequestReset(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, ticket)
}

type verifyRequest struct {
	ResetID string `json:"resetId"`
	Code    string `json:"code"`
}

func (h *Handler) resetVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	res, err := h.engine.VerifyCode(r.Context(), req.ResetID, req.Code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

type confirmRequest struct {
	ResetID  string `json:"resetId"`
	Password string `json:"password"`
}

func (h *Handler) resetConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.engine.ResetPassword(r.Context(), req.ResetID, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "password reset")
}

func (h *Handler) strength(w http.ResponseWriter, r *http.Request) {
	score, label := dashauth.PasswordStrength(r.URL.Query().Get("password"))
	writeSuccess(w, http.StatusOK, map[string]any{"score": score, "label": label})
}
