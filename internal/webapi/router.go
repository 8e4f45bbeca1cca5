package webapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/spboyer/syndi/internal/dialogue"
	"github.com/spboyer/syndi/internal/orchestration"
	"github.com/spboyer/syndi/internal/roster"
	"github.com/spboyer/syndi/internal/settlement"
	"github.com/spboyer/syndi/internal/x402"
)

// Config wires the API to the rest of the system.
type Config struct {
	Runner   *orchestration.Runner
	Driver   *dialogue.Driver
	Judge    orchestration.Evaluator
	Registry func() (*roster.Registry, error)
	Gate     *x402.Gate

	Stake int64
	Bonus int64

	// CORSOrigins lists allowed origins. An empty list allows any origin.
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewHandler builds the API router. Priced routes sit behind the payment
// gate; the event stream is neither gated nor compressed.
func NewHandler(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Stake <= 0 {
		cfg.Stake = settlement.DefaultStake
	}
	if cfg.Bonus <= 0 {
		cfg.Bonus = settlement.DefaultMissionaryBonus
	}
	if cfg.Gate == nil {
		cfg.Gate = x402.NewGate(x402.GateConfig{Logger: cfg.Logger})
	}

	h := &Handlers{
		runner:   cfg.Runner,
		driver:   cfg.Driver,
		judge:    cfg.Judge,
		registry: cfg.Registry,
		payments: cfg.Gate.Log(),
		stake:    cfg.Stake,
		bonus:    cfg.Bonus,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/debate", h.HandleDebate).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(compress, cfg.Gate.Middleware)

	api.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	api.HandleFunc("/counterparts", h.HandleCounterparts).Methods(http.MethodGet)
	api.HandleFunc("/debate/check", h.HandleCheck).Methods(http.MethodGet)
	api.HandleFunc("/payments", h.HandlePayments).Methods(http.MethodGet)
	api.HandleFunc("/chat", h.HandleChat).Methods(http.MethodPost)
	api.HandleFunc("/arena", h.HandleArena).Methods(http.MethodPost)
	api.HandleFunc("/evaluate", h.HandleEvaluate).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", x402.PaymentHeader},
	})
	return c.Handler(router)
}

func compress(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
