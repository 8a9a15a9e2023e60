package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/accounts"
	"github.com/meridian-erp/meridian-erp/internal/findoc"
	"github.com/meridian-erp/meridian-erp/internal/journal"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	NumberingHandler *numbering.Handler
	AccountHandler   *accounts.Handler
	DocumentHandler  *findoc.Handler
	JournalHandler   *journal.Handler
	LedgerHandler    *ledger.Handler
	JobHandler       *jobs.Handler
	Pool             *pgxpool.Pool
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if params.NumberingHandler != nil {
			api.Route("/sequences", func(sr chi.Router) {
				limit := 120
				if params.Config != nil && params.Config.AllocateRateLimit > 0 {
					limit = params.Config.AllocateRateLimit
				}
				sr.Use(httprate.Limit(limit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
				params.NumberingHandler.MountRoutes(sr)
			})
		}
		if params.AccountHandler != nil {
			api.Route("/accounts", params.AccountHandler.MountRoutes)
		}
		if params.DocumentHandler != nil {
			api.Route("/documents", params.DocumentHandler.MountRoutes)
		}
		if params.JournalHandler != nil {
			api.Route("/journals", params.JournalHandler.MountRoutes)
		}
		if params.LedgerHandler != nil {
			api.Route("/ledger", params.LedgerHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
