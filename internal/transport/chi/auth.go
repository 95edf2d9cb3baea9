package chi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain/access"
	"github.com/kailas-cloud/mediasearch/internal/logger"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// APIKey binds a bearer token to a principal.
type APIKey struct {
	Key       string
	Principal access.Principal
}

// BearerAuthMiddleware validates Bearer tokens and stores the matching principal in the request context.
// If keys is empty, authentication is disabled and every caller is access.Anonymous.
// WebSocket clients that cannot set headers may pass the token as the access_token query parameter.
func BearerAuthMiddleware(keys []APIKey) func(http.Handler) http.Handler {
	valid := make(map[string]access.Principal, len(keys))
	for _, k := range keys {
		if k.Key != "" {
			valid[k.Key] = k.Principal
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
				return
			}
			p, ok := valid[token]
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			ctx := access.WithPrincipal(r.Context(), p)
			ctx = logger.With(ctx, zap.String("principal", p.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	if auth := r.Header.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, bearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(auth[len(bearerPrefix):])
		return token, token != ""
	}
	if upgrade := r.Header.Get("Upgrade"); strings.EqualFold(upgrade, "websocket") {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}
