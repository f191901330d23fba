package authenticate

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"qiming/entity"
	"qiming/lib/api/cont"
	"qiming/lib/api/response"
	"qiming/lib/apperr"
	"qiming/lib/mask"
	"qiming/lib/sl"
)

type Core interface {
	VerifyToken(token string) (*entity.Identity, error)
}

// New verifies the Bearer token on every request and puts the resolved
// identity into the request context. It also writes the access log line for
// the routes it guards.
func New(log *slog.Logger, auth Core) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	log.With(mod).Info("authenticate middleware initialized")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			remote := r.RemoteAddr
			// if the request is coming from a proxy, use the X-Forwarded-For header
			xRemote := r.Header.Get("X-Forwarded-For")
			if xRemote != "" {
				remote = xRemote
			}
			logger := log.With(
				mod,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", remote),
				slog.String("request_id", id),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			t1 := time.Now()
			defer func() {
				logger.With(
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				).Info("incoming request")
			}()

			token := ""
			header := r.Header.Get("Authorization")
			if len(header) == 0 {
				logger = logger.With(sl.Err(fmt.Errorf("authorization header not found")))
				authFailed(ww, r)
				return
			}
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
			if len(token) == 0 {
				logger = logger.With(sl.Err(fmt.Errorf("bearer token not found")))
				authFailed(ww, r)
				return
			}
			logger = logger.With(slog.String("token", mask.Token(token)))

			if auth == nil {
				authFailed(ww, r)
				return
			}

			identity, err := auth.VerifyToken(token)
			if err != nil {
				logger = logger.With(sl.Err(err))
				authFailed(ww, r)
				return
			}
			logger = logger.With(sl.User(mask.Code(identity.UserId)))
			ctx := cont.PutIdentity(r.Context(), identity)

			ww.Header().Set("X-Request-ID", id)
			next.ServeHTTP(ww, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request) {
	e := apperr.InvalidToken("")
	render.Status(r, e.Status)
	render.JSON(w, r, response.Err(e))
}
