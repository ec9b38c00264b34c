package auth

import (
	"net/http"

	"github.com/abduss/foldershare/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionUserID   = "user_id"
	sessionEmail    = "email"
	sessionUsername = "username"
)

// SessionMiddleware installs the signed cookie session store used by browser clients.
func SessionMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(cfg.SessionName, store)
}

func startSession(c *gin.Context, user User) error {
	if !hasSession(c) {
		return nil
	}
	session := sessions.Default(c)
	session.Set(sessionUserID, user.ID.String())
	session.Set(sessionEmail, user.Email)
	session.Set(sessionUsername, user.Username)
	return session.Save()
}

func endSession(c *gin.Context) error {
	if !hasSession(c) {
		return nil
	}
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

func sessionUser(c *gin.Context) (ContextUser, bool) {
	if !hasSession(c) {
		return ContextUser{}, false
	}
	session := sessions.Default(c)
	rawID, _ := session.Get(sessionUserID).(string)
	if _, err := uuid.Parse(rawID); err != nil {
		return ContextUser{}, false
	}
	email, _ := session.Get(sessionEmail).(string)
	username, _ := session.Get(sessionUsername).(string)
	return ContextUser{ID: rawID, Email: email, Username: username}, true
}
