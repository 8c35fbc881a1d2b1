package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/analytics"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/goal"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/position"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/valuation"
)

// Server is the read-only JSON API over the portfolio services
type Server struct {
	R                *gin.Engine
	ValuationService *valuation.ValuationService
	AnalyticsService *analytics.AnalyticsService
	GoalService      *goal.GoalService
	PositionService  *position.PositionService
	Logger           *zap.Logger
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type listResponse[T any] struct {
	Rows []T `json:"rows"`
}

// NewServer wires the router, services and middleware.
// A non-empty apiToken is required as the Authorization header on /api routes.
func NewServer(
	valuationService *valuation.ValuationService,
	analyticsService *analytics.AnalyticsService,
	goalService *goal.GoalService,
	positionService *position.PositionService,
	logger *zap.Logger,
	apiToken string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := gin.New()

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		logger.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	})

	g.Use(gin.Recovery())

	s := &Server{
		R:                g,
		ValuationService: valuationService,
		AnalyticsService: analyticsService,
		GoalService:      goalService,
		PositionService:  positionService,
		Logger:           logger,
	}

	g.GET("/health", func(cn *gin.Context) { cn.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := g.Group("/api/users/:user", requireToken(apiToken))
	api.GET("/valuation", s.getValuation)
	api.GET("/analytics", s.getAnalytics)
	api.GET("/goals", s.getGoals)
	api.GET("/holdings", s.getHoldings)
	api.GET("/transactions", s.getTransactions)

	return s
}

// --- Middleware ---

func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		presented := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{Code: "unauthenticated", Message: "invalid token"})
			return
		}
		c.Next()
	}
}

// --- Helpers ---

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: msg})
}

// fail maps a domain error to a status code
func (s *Server) fail(c *gin.Context, where string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidGranularity),
		errors.Is(err, domain.ErrInvalidHolding),
		errors.Is(err, domain.ErrInvalidTransaction),
		errors.Is(err, domain.ErrInvalidGoal):
		s.badRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, apiError{Code: "not_found", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientQuantity),
		errors.Is(err, domain.ErrAlreadyReversed):
		c.JSON(http.StatusConflict, apiError{Code: "conflict", Message: err.Error()})
	default:
		s.Logger.Error("internal_error", zap.String("where", where), zap.Error(err))
		c.JSON(http.StatusInternalServerError, apiError{Code: "internal_server_error", Message: "internal server error"})
	}
}

func userParam(c *gin.Context) domain.UserID {
	return domain.UserID(c.Param("user"))
}

// dateRange reads the from/to query parameters
func dateRange(c *gin.Context) (domain.DateRange, error) {
	from, err := domain.ParseDate(c.Query("from"))
	if err != nil {
		return domain.DateRange{}, err
	}
	to, err := domain.ParseDate(c.Query("to"))
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.DateRange{From: from, To: to}, nil
}

// --- Handlers ---

func (s *Server) getValuation(c *gin.Context) {
	result, err := s.ValuationService.Valuate(c.Request.Context(), userParam(c))
	if err != nil {
		s.fail(c, "getValuation", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getAnalytics(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	g, err := domain.ParseGranularity(c.Query("granularity"))
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	summary, err := s.AnalyticsService.Summarize(c.Request.Context(), userParam(c), r, g)
	if err != nil {
		s.fail(c, "getAnalytics", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// getGoals evaluates the user's goals. It is not read-only: a goal reaching a terminal
// status is stored and a goal.status_changed event is published, once per transition.
func (s *Server) getGoals(c *gin.Context) {
	g, err := domain.ParseGranularity(c.Query("granularity"))
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	progress, err := s.GoalService.Progress(c.Request.Context(), userParam(c), g)
	if err != nil {
		s.fail(c, "getGoals", err)
		return
	}
	c.JSON(http.StatusOK, listResponse[domain.GoalProgress]{Rows: progress})
}

func (s *Server) getHoldings(c *gin.Context) {
	holdings, err := s.PositionService.ListHoldings(c.Request.Context(), userParam(c))
	if err != nil {
		s.fail(c, "getHoldings", err)
		return
	}
	c.JSON(http.StatusOK, listResponse[*domain.Holding]{Rows: holdings})
}

func (s *Server) getTransactions(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	txs, err := s.PositionService.ListTransactions(c.Request.Context(), userParam(c), r)
	if err != nil {
		s.fail(c, "getTransactions", err)
		return
	}
	c.JSON(http.StatusOK, listResponse[*domain.Transaction]{Rows: txs})
}
