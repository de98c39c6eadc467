package server

import (
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vkazakov/chatline/internal/api"
	"github.com/vkazakov/chatline/internal/model/chat"
	"github.com/vkazakov/chatline/pkg/utils"
)

// handleToken exchanges form credentials for a fresh cookie pair.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeRequestValidation, "invalid form body", nil)
		return
	}

	tag := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, hash, ok := s.store.Credentials(tag)
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		utils.RespondError(w, http.StatusUnauthorized, api.CodeIncorrectCreds, "Incorrect tag or password", nil)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, api.CodeUnknown, "failed to issue tokens", nil)
		return
	}
	utils.RespondOK(w, http.StatusCreated)
}

// handleRefresh rotates the refresh token and mints a new access token.
// It deliberately ignores the (likely expired) access cookie.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, api.CodeInvalidToken, "missing refresh token", nil)
		return
	}

	claims, err := s.auth.Validate(cookie.Value)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, api.CodeInvalidToken, "invalid refresh token", nil)
		return
	}

	userID, ok := s.store.TakeRefresh(claims.ID)
	if !ok || userID != claims.UserID {
		utils.RespondError(w, http.StatusUnauthorized, api.CodeInvalidToken, "refresh token revoked", nil)
		return
	}

	user, ok := s.store.UserByID(userID)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, api.CodeInvalidToken, "unknown user", nil)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, api.CodeUnknown, "failed to issue tokens", nil)
		return
	}
	utils.RespondOK(w, http.StatusCreated)
}

// handleLogout revokes the refresh token and clears both cookies.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		if claims, err := s.auth.Validate(cookie.Value); err == nil {
			s.store.DropRefresh(claims.ID)
		}
	}
	clearSessionCookies(w)
	utils.RespondOK(w, http.StatusOK)
}

// issueSession mints both tokens and sets them as HTTP-only cookies.
func (s *Server) issueSession(w http.ResponseWriter, user chat.User) error {
	access, err := s.auth.Access(user)
	if err != nil {
		return err
	}

	jti := uuid.NewString()
	refresh, err := s.auth.Refresh(user, jti)
	if err != nil {
		return err
	}
	s.store.PutRefresh(jti, user.UserID)

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    access,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    refresh,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}
