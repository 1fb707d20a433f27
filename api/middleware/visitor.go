package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/servicecart/pkg/logger"
)

const (
	defaultVisitorCookie = "sc_visitor"
	visitorCookieMaxAge  = 365 * 24 * time.Hour
)

// VisitorCookie configures the anonymous visitor cookie.
type VisitorCookie struct {
	Name   string
	Secure bool
}

// Visitor identifies the anonymous visitor by cookie, issuing a fresh id when the cookie is
// missing or malformed. The id scopes the visitor's cart.
func Visitor(cookie VisitorCookie, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.TrimSpace(cookie.Name)
	if name == "" {
		name = defaultVisitorCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID := ""
			if c, err := r.Cookie(name); err == nil {
				if parsed, parseErr := uuid.Parse(c.Value); parseErr == nil {
					visitorID = parsed.String()
				}
			}
			if visitorID == "" {
				visitorID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    visitorID,
					Path:     "/",
					MaxAge:   int(visitorCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cookie.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithVisitorID(r.Context(), visitorID)
			if logg != nil {
				ctx = logg.WithVisitorID(ctx, visitorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
