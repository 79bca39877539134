package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/binpoints/apiserver/internal/access"
	"github.com/binpoints/apiserver/internal/services"
)

// API holds what the routers share.
type API struct {
	Services *services.Services
	Guard    *Guard
	Auth     *AuthHandler

	// Limit rate limits credential endpoints. Nil disables limiting.
	Limit func(http.Handler) http.Handler

	MaxUploadBytes int64
}

// Options configures NewAPI.
type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration
	MaxUploadBytes int64
	Limit          func(http.Handler) http.Handler
}

// NewAPI wires handlers over svc. Access decisions are answered by dir,
// normally the store.
func NewAPI(svc *services.Services, dir access.Directory, opts Options) *API {
	evaluator := access.NewEvaluator(dir)
	return &API{
		Services:       svc,
		Guard:          NewGuard(evaluator),
		Auth:           NewAuthHandler(svc.Users, evaluator, opts.JWTSecret, opts.TokenTTL),
		Limit:          opts.Limit,
		MaxUploadBytes: opts.MaxUploadBytes,
	}
}

func (a *API) images() imageHandler {
	return imageHandler{images: a.Services.Images, maxBytes: a.MaxUploadBytes}
}

// Mount registers every route on r.
func (a *API) Mount(r chi.Router) {
	r.Get("/healthz", Healthz)
	AuthRouter(r, a.Auth, a.Limit)

	r.Route("/users", func(r chi.Router) { UserRouter(r, a) })
	r.Route("/staff", func(r chi.Router) { StaffRouter(r, a) })
	r.Route("/motivations", func(r chi.Router) { MotivationRouter(r, a) })
	r.Route("/bins", func(r chi.Router) { BinRouter(r, a) })
	r.Route("/recyclables", func(r chi.Router) { RecyclableRouter(r, a) })
	r.Route("/rewards", func(r chi.Router) { RewardRouter(r, a) })
	r.Route("/submissions", func(r chi.Router) { SubmissionRouter(r, a) })
	r.Route("/purchases", func(r chi.Router) { PurchaseRouter(r, a) })
	r.Route("/logs", func(r chi.Router) { LogRouter(r, a) })
	r.Get("/statistics", a.statistics)
}
