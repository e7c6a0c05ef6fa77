package router

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/bulk"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/metrics"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// the verification page carries inline styles only
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewLimiterStore returns a redis backed store when redisURL is set, falling
// back to process memory when it is empty or unusable.
func NewLimiterStore(redisURL string, logger *zap.SugaredLogger) limiter.Store {
	if redisURL == "" {
		return memory.NewStore()
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warnw("invalid REDIS_URL, rate limiting in memory", "err", err)
		return memory.NewStore()
	}
	store, err := limiterredis.NewStoreWithOptions(redis.NewClient(opt), limiter.StoreOptions{
		Prefix: "contactbook_limiter",
	})
	if err != nil {
		logger.Warnw("redis limiter store unavailable, rate limiting in memory", "err", err)
		return memory.NewStore()
	}
	return store
}

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators mounted by RegisterRoutes.
type Deps struct {
	Logger   *zap.SugaredLogger
	DB       Pinger
	Tokens   *auth.TokenManager
	Users    *user.Handler
	Contacts *contact.Handler
	Bulk     *bulk.Handler

	AllowedOrigins []string
	// RateLimit is a limiter formatted rate ("20-M"); empty disables limiting.
	RateLimit    string
	LimiterStore limiter.Store
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) (http.Handler, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.PingContext(ctx); err != nil {
			d.Logger.Warnw("health check failed", "err", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// auth routes, rate limited per client ip
	limit := func(h http.HandlerFunc) http.Handler { return h }
	if d.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(d.RateLimit)
		if err != nil {
			return nil, err
		}
		store := d.LimiterStore
		if store == nil {
			store = memory.NewStore()
		}
		lm := limiterhttp.NewMiddleware(limiter.New(store, rate))
		limit = func(h http.HandlerFunc) http.Handler { return lm.Handler(h) }
	}
	mux.Handle("POST /auth/signup", limit(d.Users.Signup))
	mux.Handle("POST /auth/login", limit(d.Users.Login))
	mux.HandleFunc("GET /mail-verification", d.Users.VerifyEmail)

	// contact routes
	requireAuth := auth.RequireAuth(d.Tokens, d.Logger)
	protect := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }
	mux.Handle("POST /contacts", protect(d.Contacts.Create))
	mux.Handle("POST /contacts/batch", protect(d.Contacts.CreateBatch))
	mux.Handle("GET /contacts", protect(d.Contacts.List))
	mux.Handle("PUT /contacts/{id}", protect(d.Contacts.Update))
	mux.Handle("PUT /contacts", protect(d.Contacts.UpdateBatch))
	mux.Handle("DELETE /contacts/{id}", protect(d.Contacts.Delete))

	// bulk routes
	mux.Handle("POST /bulkcontacts/upload", protect(d.Bulk.Upload))
	mux.Handle("GET /bulkcontacts/download", protect(d.Bulk.Download))

	// metrics sits directly on the mux so the matched pattern is visible
	var handler http.Handler = metrics.HTTPMetricsMiddleware(mux)
	handler = SecurityHeadersMiddleware()(handler)
	handler = LoggingMiddleware(d.Logger)(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(handler)
	return handler, nil
}
