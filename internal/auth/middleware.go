package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumera-studio/gatehouse/internal/user"
)

type userContextKey struct{}

// UserFromContext returns the authorized user attached by Guard.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*user.User)
	return u, ok
}

// rejectionMessage is the uniform 401 body. A rejected request never reveals
// which check failed.
const rejectionMessage = "Unauthorized. Please login again."

// Guard returns middleware that runs every protected request through the
// gate. On success any reissued tokens are written back as cookies and the
// resolved user is attached to the request context; on any failure the
// request terminates with a uniform 401 and no further processing.
func Guard(svc *Service, cookies *CookieWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svc == nil {
				http.Error(w, rejectionMessage, http.StatusUnauthorized)
				return
			}

			creds := Credentials{
				AccessToken:  cookieValue(r, CookieAccessToken),
				RefreshToken: cookieValue(r, CookieRefreshToken),
				CSRFCookie:   cookieValue(r, CookieCSRFToken),
				CSRFHeader:   r.Header.Get(HeaderCSRF),
			}

			grant, err := svc.Authorize(r.Context(), creds)
			if err != nil {
				svc.logger.Warn("request rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				http.Error(w, rejectionMessage, http.StatusUnauthorized)
				return
			}

			if grant.NewAccessToken != "" {
				cookies.Set(w, CookieAccessToken, grant.NewAccessToken)
			}
			if grant.NewRefreshToken != "" {
				cookies.Set(w, CookieRefreshToken, grant.NewRefreshToken)
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, grant.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
