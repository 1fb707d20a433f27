package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/servicecart/api/responses"
	pkgerrors "github.com/angelmondragon/servicecart/pkg/errors"
	"github.com/angelmondragon/servicecart/pkg/logger"
	"github.com/angelmondragon/servicecart/pkg/security"
)

// AdminCredentials holds the configured admin secret. Hash, an argon2id string, wins over Token.
type AdminCredentials struct {
	Token string
	Hash  string
}

func (c AdminCredentials) verify(given string) bool {
	if given == "" {
		return false
	}
	if hash := strings.TrimSpace(c.Hash); hash != "" {
		ok, err := security.VerifyToken(given, hash)
		return err == nil && ok
	}
	return security.EqualTokens(given, strings.TrimSpace(c.Token))
}

// AdminAuth requires "Authorization: Bearer <admin token>".
func AdminAuth(creds AdminCredentials, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || !creds.verify(token) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin credentials required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withAdmin(r.Context())))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
