// Package server exposes the ledger operations over HTTP.
package server

import (
	"net/http"
	"strconv"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/custodia/walletcore/internal/ledger"
	"github.com/custodia/walletcore/internal/wallet"
	"github.com/custodia/walletcore/pkg/errors"
)

// Server represents the HTTP server.
type Server struct {
	logger     *zap.Logger
	svc        *wallet.Service
	rebalancer *wallet.Rebalancer
	scope      string
}

// NewServer creates a new HTTP server.
func NewServer(logger *zap.Logger, svc *wallet.Service, rebalancer *wallet.Rebalancer, scope string) *Server {
	return &Server{
		logger:     logger,
		svc:        svc,
		rebalancer: rebalancer,
		scope:      scope,
	}
}

// Router creates a new HTTP router.
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/accounts/:account/balance", s.handleBalance)
		v1.GET("/accounts/:account/available_balance", s.handleAvailableBalance)
		v1.GET("/accounts/:account/deposit_address", s.handleDepositAddress)
		v1.POST("/accounts/:account/deposit_address/rotate", s.handleRotateAddress)
		v1.GET("/accounts/:account/transactions", s.handleListTransactions)

		v1.POST("/withdrawals", s.handleCreateWithdrawal)
		v1.POST("/transfers", s.handleCreateTransfer)

		v1.GET("/transactions/:id", s.handleGetTransaction)
		v1.POST("/transactions/:id/confirm", s.handleConfirm)
		v1.POST("/transactions/:id/unconfirm", s.handleUnconfirm)
		v1.POST("/transactions/:id/cancel", s.handleCancel)
		v1.POST("/transactions/:id/retry", s.handleRetry)

		v1.GET("/export.csv", s.handleExportCSV)

		v1.GET("/cold_storage/:symbol/suggestion", s.handleColdSuggestion)
		v1.GET("/cold_storage/:symbol/deposit_address", s.handleColdDepositAddress)
		v1.POST("/cold_storage/:symbol/withdraw", s.handleColdWithdraw)
	}

	return router
}

func (s *Server) handleBalance(c *gin.Context) {
	account := c.Param("account")
	symbol := c.Query("symbol")
	if symbol == "" {
		s.writeError(c, errors.New(errors.KindInvalidRequest, "symbol query parameter is required"))
		return
	}
	balance, err := s.svc.Balance(c.Request.Context(), s.scope, account, symbol)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "symbol": symbol, "balance": balance})
}

func (s *Server) handleAvailableBalance(c *gin.Context) {
	account := c.Param("account")
	symbol := c.Query("symbol")
	if symbol == "" {
		s.writeError(c, errors.New(errors.KindInvalidRequest, "symbol query parameter is required"))
		return
	}
	available, err := s.svc.AvailableBalance(c.Request.Context(), s.scope, account, symbol)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "symbol": symbol, "available_balance": available})
}

func (s *Server) handleDepositAddress(c *gin.Context) {
	account := c.Param("account")
	symbol := c.Query("symbol")
	if symbol == "" {
		s.writeError(c, errors.New(errors.KindInvalidRequest, "symbol query parameter is required"))
		return
	}
	addr, err := s.svc.GetDepositAddress(c.Request.Context(), s.scope, account, symbol)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

func (s *Server) handleRotateAddress(c *gin.Context) {
	account := c.Param("account")
	symbol := c.Query("symbol")
	if symbol == "" {
		s.writeError(c, errors.New(errors.KindInvalidRequest, "symbol query parameter is required"))
		return
	}
	addr, err := s.svc.RotateDepositAddress(c.Request.Context(), s.scope, account, symbol)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

func (s *Server) handleListTransactions(c *gin.Context) {
	account := c.Param("account")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	rows, err := s.svc.ListTransactions(c.Request.Context(), s.scope, account, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}

func (s *Server) handleCreateWithdrawal(c *gin.Context) {
	var req wallet.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.Wrap(errors.KindInvalidRequest, "invalid request body", err))
		return
	}
	req.Scope = s.scope
	row, err := s.svc.CreateWithdrawal(c.Request.Context(), req)
	if err != nil && row == nil {
		s.writeError(c, err)
		return
	}
	// A committed row with a failed broadcast is reported alongside the
	// adapter error.
	resp := gin.H{"transaction": row}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleCreateTransfer(c *gin.Context) {
	var req wallet.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.Wrap(errors.KindInvalidRequest, "invalid request body", err))
		return
	}
	req.Scope = s.scope
	send, recv, err := s.svc.CreateTransfer(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"send": send, "receive": recv})
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	id, err := s.pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	row, err := s.svc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) handleConfirm(c *gin.Context) {
	s.handleConfirmation(c, true)
}

func (s *Server) handleUnconfirm(c *gin.Context) {
	s.handleConfirmation(c, false)
}

func (s *Server) handleConfirmation(c *gin.Context, confirm bool) {
	id, err := s.pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	by := ledger.ConfirmedBy(c.DefaultQuery("by", string(ledger.ConfirmedByAdmin)))

	var row *ledger.Transaction
	if confirm {
		row, err = s.svc.Confirm(c.Request.Context(), id, by)
	} else {
		row, err = s.svc.Unconfirm(c.Request.Context(), id, by)
	}
	if err != nil && row == nil {
		s.writeError(c, err)
		return
	}
	resp := gin.H{"transaction": row}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCancel(c *gin.Context) {
	id, err := s.pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	row, err := s.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) handleRetry(c *gin.Context) {
	id, err := s.pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	row, err := s.svc.Retry(c.Request.Context(), id)
	if err != nil && row == nil {
		s.writeError(c, err)
		return
	}
	resp := gin.H{"transaction": row}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="ledger.csv"`)
	if err := s.svc.ExportCSV(c.Request.Context(), c.Writer, s.scope); err != nil {
		s.logger.Error("csv export failed", zap.Error(err))
	}
}

func (s *Server) handleColdSuggestion(c *gin.Context) {
	symbol := c.Param("symbol")
	percent, err := decimal.NewFromString(c.DefaultQuery("percent", "100"))
	if err != nil {
		s.writeError(c, errors.Wrap(errors.KindInvalidRequest, "invalid percent", err))
		return
	}
	suggestion, err := s.rebalancer.Suggest(c.Request.Context(), s.scope, symbol, percent)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

func (s *Server) handleColdDepositAddress(c *gin.Context) {
	symbol := c.Param("symbol")
	addr, err := s.rebalancer.ColdDepositAddress(c.Request.Context(), s.scope, symbol)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

type coldWithdrawRequest struct {
	Address string          `json:"address" binding:"required"`
	Extra   string          `json:"extra"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

func (s *Server) handleColdWithdraw(c *gin.Context) {
	symbol := c.Param("symbol")
	var req coldWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.Wrap(errors.KindInvalidRequest, "invalid request body", err))
		return
	}
	row, err := s.rebalancer.WithdrawToCold(c.Request.Context(), s.scope, symbol, req.Address, req.Extra, req.Amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (s *Server) pathID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.KindInvalidRequest, "invalid transaction id", err)
	}
	return id, nil
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.KindOf(err) {
	case errors.KindInvalidRequest:
		status = http.StatusBadRequest
	case errors.KindInsufficientBalance:
		status = http.StatusUnprocessableEntity
	case errors.KindStateConflict:
		status = http.StatusConflict
	case errors.KindBackendUnavailable:
		status = http.StatusServiceUnavailable
	case errors.KindExecutionFailure:
		status = http.StatusBadGateway
	case errors.KindPersistenceError:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": errors.KindOf(err)})
}
