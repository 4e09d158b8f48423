package handler

import (
	"net/http"

	"clinic-scheduling-api/internal/auth"
	"clinic-scheduling-api/internal/model"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Type     string `json:"type"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	err := h.auth.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Type:     req.Type,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Usuário registrado no sistema.")
}

// Login takes the email as the Basic auth username.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		loginFailed(w, r, model.NewAuthError("Credenciais ausentes."))
		return
	}
	tok, err := h.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		loginFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: tok})
}

func loginFailed(w http.ResponseWriter, r *http.Request, err error) {
	if model.KindOf(err) == model.KindAuth {
		w.Header().Set("WWW-Authenticate", `Basic realm="Login required"`)
	}
	writeError(w, r, err)
}
