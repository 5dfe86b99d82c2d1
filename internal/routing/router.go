package routing

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Router struct {
	handler        *ProductHandler
	logger         *Logger
	requestTimeout time.Duration
}

func NewRouter(handler *ProductHandler, logger *Logger, requestTimeout time.Duration) *Router {
	return &Router{
		handler:        handler,
		logger:         logger,
		requestTimeout: requestTimeout,
	}
}

func (router *Router) SetupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(router.logger.LoggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	if router.requestTimeout > 0 {
		r.Use(middleware.Timeout(router.requestTimeout))
	}

	r.Get("/", router.handler.Hello)
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", router.handler.ListProducts)
		r.Post("/", router.handler.CreateProduct)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", router.handler.GetProduct)
			r.Put("/", router.handler.ReplaceProduct)
			r.Patch("/", router.handler.PatchProduct)
			r.Delete("/", router.handler.DeleteProduct)
		})
	})

	return r
}

// CORS allows any origin, method and header, and answers preflight requests
// directly.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Expose-Headers", "Location")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", r.Header.Get("Access-Control-Request-Method"))
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			h.Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
