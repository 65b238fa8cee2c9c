package httpapi

import (
	"net/http"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/middleware"
	"github.com/go-chi/chi/v5"
)

type meResponse struct {
	User        *dashauth.User `json:"user"`
	Permissions []string       `json:"permissions"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	writeSuccess(w, http.StatusOK, meResponse{
		User:        id.User,
		Permissions: h.engine.Permissions(id.User.Role),
	})
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	h.update(w, r, id.User.ID)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	h.update(w, r, userID)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, userID int64) {
	var upd dashauth.ProfileUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	u, err := h.engine.UpdateProfile(r.Context(), userID, upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, u)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	if err := h.engine.ChangePassword(r.Context(), id.User.ID, req.OldPassword, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "password changed")
}

func (h *Handler) mySessions(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	h.sessions(w, r, id.User.ID)
}

func (h *Handler) userSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	h.sessions(w, r, userID)
}

func (h *Handler) sessions(w http.ResponseWriter, r *http.Request, userID int64) {
	list, err := h.engine.ListSessions(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, list)
}

func (h *Handler) revokeMySession(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	h.revoke(w, r, id.User.ID)
}

func (h *Handler) revokeUserSession(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	h.revoke(w, r, userID)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request, userID int64) {
	if err := h.engine.RevokeSession(r.Context(), userID, chi.URLParam(r, "sessionID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, st)
}
