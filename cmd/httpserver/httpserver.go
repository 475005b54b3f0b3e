// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/corebank/ledger/internal/accountdelivery"
	"github.com/corebank/ledger/internal/accountrepo"
	"github.com/corebank/ledger/internal/accountservice"
	"github.com/corebank/ledger/internal/idempotency"
	"github.com/corebank/ledger/internal/ledgerrepo"
	"github.com/corebank/ledger/internal/middleware"
	"github.com/corebank/ledger/internal/transferdelivery"
	"github.com/corebank/ledger/internal/transferrepo"
	"github.com/corebank/ledger/internal/transferservice"
	"github.com/corebank/ledger/pkg/configpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes. rdb may be
// nil to run without the idempotency result cache.
func New(conn *sql.DB, rdb *redis.Client, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	accountRepo := accountrepo.NewRepoPGS(conn)
	ledgerRepo := ledgerrepo.NewRepoPGS(conn)
	transferRepo := transferrepo.NewRepoPGS(conn, config.LockTimeout, config.TxMaxRetries)

	guard := idempotency.NewGuard(ledgerRepo)

	var cache transferservice.ResultCache
	if rdb != nil {
		cache = idempotency.NewCache(rdb, config.IdempotencyCacheTTL)
	}

	accountService := accountservice.New(accountRepo)
	transferService := transferservice.New(transferRepo, guard, cache)

	accountHandler := accountdelivery.NewHandler(accountService)
	transferHandler := transferdelivery.NewHandler(transferService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/accounts", accountHandler.Create)
	engine.GET("/accounts/:id", accountHandler.Get)
	engine.GET("/accounts", accountHandler.List)

	engine.POST("/transfers", transferHandler.Create)
	engine.GET("/transfers/:key", transferHandler.Get)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("amount", transferdelivery.ValidAmount)
		if err != nil {
			return nil, errors.New("cannot register amount validator")
		}
	}

	return &Server{DB: conn, Engine: engine, Config: config}, nil
}
