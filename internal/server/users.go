package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vkazakov/chatline/internal/api"
	"github.com/vkazakov/chatline/pkg/utils"
)

// handleSignUp registers a user and logs them in right away.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FirstName string `json:"first_name"`
		Surname   string `json:"surname"`
		Tag       string `json:"tag"`
		Password  string `json:"password"`
		Bio       string `json:"bio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeRequestValidation, "invalid request body", nil)
		return
	}

	payload.Tag = strings.TrimSpace(payload.Tag)
	if payload.FirstName == "" || payload.Surname == "" || payload.Tag == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeRequestValidation,
			"first_name, surname, tag and password are required", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, api.CodeUnknown, "failed to hash password", nil)
		return
	}

	user, err := s.store.CreateUser(payload.FirstName, payload.Surname, payload.Tag, payload.Bio, hash)
	if err != nil {
		utils.RespondError(w, http.StatusConflict, api.CodeIntegrity, "tag already taken",
			map[string]any{"entity": "user", "is_uniqueness": true})
		return
	}

	if err := s.issueSession(w, user); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, api.CodeUnknown, "failed to issue tokens", nil)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	user, ok := s.store.UserByID(claims.UserID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "user not found",
			map[string]any{"entity": "user", "entity_id": claims.UserID})
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeBadValue, "invalid user id", nil)
		return
	}

	user, ok := s.store.UserByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "user not found",
			map[string]any{"entity": "user", "entity_id": id})
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserByTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")

	user, ok := s.store.UserByTag(tag)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "user not found",
			map[string]any{"entity": "user"})
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}
