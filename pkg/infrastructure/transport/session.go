package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"woodstore/pkg/domain/model"
)

const (
	cartCookie    = "cart_token"
	sessionCookie = "session"
	cartCookieTTL = 90 * 24 * time.Hour
)

// cartToken returns the caller's cart token, issuing a new cookie when the
// request carries none or a malformed one.
func (h *Handler) cartToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cartCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cartCookieTTL),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// identity resolves the signed-in caller; a nil identity with a nil error
// means an anonymous request.
func (h *Handler) identity(r *http.Request) (*model.Identity, error) {
	return h.services.Auth.Identify(r.Context(), sessionToken(r))
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, session *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
