package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"plp-bookstore/internal/utils"
)

type AuthHandler struct {
	ConfigCreds struct {
		UserId       string
		Username     string
		UserPassword string
	}
	Logger *zap.Logger
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// POST /login
func (a *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	expectedPassword := a.ConfigCreds.UserPassword
	expectedUsername := a.ConfigCreds.Username
	if expectedUsername == "" || expectedPassword != req.Password || expectedUsername != req.Username {
		utils.JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := utils.GenerateJWT(a.ConfigCreds.UserId)
	if err != nil {
		logger(a.Logger).Error("token generation failed", zap.Error(err))
		utils.JSONError(w, "Could not issue token", http.StatusInternalServerError)
		return
	}

	utils.JSON(w, http.StatusOK, LoginResponse{Token: token})
}
