package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"tolkBack/internal/repositories"
)

// FCMHandler owns the device token registry used for push delivery.
type FCMHandler struct {
	Tokens *repositories.TokenRepository
}

type tokenRequest struct {
	UserID int    `json:"user_id"`
	Token  string `json:"token"`
}

func (h *FCMHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.UserID == 0 || req.Token == "" {
		http.Error(w, "user_id and token are required", http.StatusBadRequest)
		return
	}

	if err := h.Tokens.Insert(r.Context(), req.UserID, req.Token); err != nil {
		log.Printf("Error inserting token for user %d: %v", req.UserID, err)
		http.Error(w, "Failed to insert token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *FCMHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(":token")
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	if err := h.Tokens.DeleteByToken(r.Context(), token); err != nil {
		log.Printf("Error deleting token: %v", err)
		http.Error(w, "Failed to delete token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
