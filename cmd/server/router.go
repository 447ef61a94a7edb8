package main

import (
	"net/http"

	"github.com/benvon/simple-todo/internal/config"
	"github.com/benvon/simple-todo/internal/handlers"
	"github.com/benvon/simple-todo/internal/middleware"
	"github.com/benvon/simple-todo/internal/queue"
	"github.com/benvon/simple-todo/internal/store"
	"github.com/benvon/simple-todo/internal/telemetry"
	"github.com/benvon/simple-todo/internal/validation"
	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

type routerConfig struct {
	cfg          *config.Config
	store        store.Store
	validator    *validation.Validator
	publisher    queue.Publisher
	health       *handlers.HealthChecker
	limiterStore limiter.Store
	tracing      bool
	logger       *zap.Logger
}

// newRouter assembles the HTTP API. gorilla/mux runs middleware in the order
// it is registered, so the first Use is the outermost wrapper.
func newRouter(rc routerConfig) (*mux.Router, error) {
	r := mux.NewRouter()

	if rc.tracing {
		r.Use(otelmux.Middleware(telemetry.ServiceName, otelmux.WithPropagators(telemetry.Propagator())))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(rc.cfg.EnableHSTS))
	r.Use(middleware.CORS(rc.cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(rc.logger))
	r.Use(middleware.Audit(rc.logger))
	r.Use(middleware.Logging(rc.logger))

	// Public routes, not rate limited
	r.HandleFunc("/healthz", rc.health.HealthCheck).Methods("GET")
	r.HandleFunc("/version", handlers.VersionHandler(version)).Methods("GET")
	handlers.NewOpenAPIHandler(nil).RegisterRoutes(r)

	rate := rc.cfg.RateLimit
	if rate == "" {
		rate = middleware.DefaultRate
	}
	rateLimitMW, err := middleware.RateLimit(rate, rc.limiterStore, rc.logger)
	if err != nil {
		return nil, err
	}

	todosRouter := r.PathPrefix("/api/todos").Subrouter()
	todosRouter.Use(rateLimitMW)
	handlers.NewTodoHandler(rc.store, rc.logger,
		handlers.WithTodoValidator(rc.validator),
		handlers.WithTodoPublisher(rc.publisher),
	).RegisterRoutes(todosRouter)

	// Preflight requests need a matching route for the CORS middleware to run
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r, nil
}
