package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vidyalaya/feeledger/internal/academic"
	academicdomain "github.com/vidyalaya/feeledger/internal/academic/domain"
	"github.com/vidyalaya/feeledger/internal/audit"
	auditdomain "github.com/vidyalaya/feeledger/internal/audit/domain"
	"github.com/vidyalaya/feeledger/internal/config"
	"github.com/vidyalaya/feeledger/internal/feestructure"
	feedomain "github.com/vidyalaya/feeledger/internal/feestructure/domain"
	"github.com/vidyalaya/feeledger/internal/locking"
	"github.com/vidyalaya/feeledger/internal/observability"
	obsmiddleware "github.com/vidyalaya/feeledger/internal/observability/logger"
	obstracing "github.com/vidyalaya/feeledger/internal/observability/tracing"
	"github.com/vidyalaya/feeledger/internal/obligation"
	obligationdomain "github.com/vidyalaya/feeledger/internal/obligation/domain"
	"github.com/vidyalaya/feeledger/internal/payment"
	paymentdomain "github.com/vidyalaya/feeledger/internal/payment/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	locking.Module,
	audit.Module,
	academic.Module,
	feestructure.Module,
	obligation.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	academicSvc   academicdomain.Service
	feeSvc        feedomain.Service
	obligationSvc obligationdomain.Service
	paymentSvc    paymentdomain.Service
	auditSvc      auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	AcademicSvc   academicdomain.Service
	FeeSvc        feedomain.Service
	ObligationSvc obligationdomain.Service
	PaymentSvc    paymentdomain.Service
	AuditSvc      auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		academicSvc:   p.AcademicSvc,
		feeSvc:        p.FeeSvc,
		obligationSvc: p.ObligationSvc,
		paymentSvc:    p.PaymentSvc,
		auditSvc:      p.AuditSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.POST("/students", s.CreateStudent)
	api.GET("/students", s.ListStudents)
	api.GET("/students/:id", s.GetStudent)

	api.POST("/sessions", s.CreateSession)
	api.GET("/sessions", s.ListSessions)

	api.POST("/fee-structures", s.CreateFeeStructure)
	api.GET("/fee-structures", s.ListFeeStructures)
	api.GET("/fee-structures/latest", s.LatestFeeStructure)

	api.POST("/fees/enable", s.EnableTracking)
	api.GET("/fees/status", s.GetFeeStatus)
	api.GET("/fees/reconcile", s.Reconcile)

	api.POST("/payments", s.AllocatePayment)
	api.GET("/payments", s.ListPayments)
	api.GET("/payments/:id", s.GetPayment)
	api.POST("/payments/:id/reversals", s.ReversePayment)

	api.GET("/reversal-reasons", s.ListReversalReasons)
	api.GET("/audit-logs", s.ListAuditLogs)
}

func parseID(raw string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
