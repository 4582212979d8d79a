package api

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradsys/clob/internal/clob"
	"github.com/tradsys/clob/internal/events"
	"github.com/tradsys/clob/internal/host"
	"github.com/tradsys/clob/internal/metrics"
)

// Handler binds gin routes to the registry's order books. It holds no
// matching logic itself — every request is a bind-call-map round trip.
type Handler struct {
	registry     *Registry
	logger       *zap.Logger
	publisher    *events.Publisher
	metrics      *metrics.MatchingMetrics
	tokenService host.TokenService
}

// NewHandler constructs a Handler over registry. publisher, matchingMetrics
// and tokenService may all be nil, in which case fill notifications, metric
// recording and vault settlement calls are simply skipped.
func NewHandler(registry *Registry, logger *zap.Logger, publisher *events.Publisher, matchingMetrics *metrics.MatchingMetrics, tokenService host.TokenService) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, logger: logger, publisher: publisher, metrics: matchingMetrics, tokenService: tokenService}
}

// RegisterRoutes wires the full instruction surface under router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	router.POST("/books", authMiddleware, h.CreateBook)

	books := router.Group("/books/:pair")
	books.Use(authMiddleware)
	{
		books.POST("/limit-orders", h.SubmitLimitOrder)
		books.DELETE("/limit-orders/:slot", h.CancelLimitOrder)
		books.POST("/take-orders", h.SubmitTakeOrder)
		books.POST("/fees/sweep", h.SweepFees)
		books.GET("/twap", h.GetTWAP)
		books.GET("/makers/:authority", h.GetMarketMakerBalance)
		books.GET("/orders/:side/:refID", h.GetOrderIndex)
		books.GET("/depth", h.GetDepth)
	}

	makers := router.Group("/makers")
	makers.Use(authMiddleware)
	{
		makers.POST("", h.AddMarketMaker)
		makers.POST("/:idx/balance", h.TopUpBalance)
		makers.DELETE("/:idx/balance", h.WithdrawBalance)
	}
}

func parseSide(s string) (clob.Side, bool) {
	switch s {
	case "buy":
		return clob.Buy, true
	case "sell":
		return clob.Sell, true
	default:
		return 0, false
	}
}

// callerIdentity reads the authority the auth middleware resolved from the
// bearer token (see middleware.go).
func callerIdentity(c *gin.Context) host.Identity {
	v, ok := c.Get("identity")
	if !ok {
		return host.Identity{}
	}
	id, ok := v.(host.Identity)
	if !ok {
		return host.Identity{}
	}
	return id
}

func (h *Handler) bookOrNotFound(c *gin.Context) (*clob.OrderBook, bool) {
	pair := c.Param("pair")
	book, ok := h.registry.Book(pair)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found", "pair": pair})
		return nil, false
	}
	return book, true
}

// CreateBook handles POST /v1/books, the HTTP analogue of initialize_order_book.
func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := h.registry.CreateBook(
		req.Pair,
		common.HexToAddress(req.Base),
		common.HexToAddress(req.Quote),
		common.HexToAddress(req.BaseVault),
		common.HexToAddress(req.QuoteVault),
		host.SigningTag{},
	)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		book.SetMetrics(h.metrics)
	}

	c.Status(http.StatusCreated)
}

// SubmitLimitOrder handles POST /v1/books/:pair/limit-orders.
func (h *Handler) SubmitLimitOrder(c *gin.Context) {
	book, ok := h.bookOrNotFound(c)
	if !ok {
		return
	}

	var req SubmitLimitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, ok := parseSide(req.Side)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid side"})
		return
	}

	slot, err := book.SubmitLimitOrder(h.registry.Now(), side, req.AmountIn, req.Price, req.RefID, req.MakerIdx, callerIdentity(c))
	if err != nil {
		mapped := mapError(err, "limit order rejected")
		h.logger.Warn("submit limit order failed", zap.Error(mapped))
		c.JSON(apiStatus(mapped), gin.H{"error": mapped.Message, "code": mapped.Code})
		return
	}

	c.JSON(http.StatusCreated, SubmitLimitOrderResponse{Slot: slot})
}

// CancelLimitOrder handles DELETE /v1/books/:pair/limit-orders/:slot.
func (h *Handler) CancelLimitOrder(c *gin.Context) {
	book, ok := h.bookOrNotFound(c)
	if !ok {
		return
	}

	slot64, err := strconv.ParseUint(c.Param("slot"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot"})
		return
	}

	var req CancelLimitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, ok := parseSide(req.Side)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid side"})
		return
	}

	if err := book.CancelLimitOrder(h.registry.Now(), side, uint8(slot64), req.MakerIdx, callerIdentity(c)); err != nil {
		mapped := mapError(err, "cancel limit order rejected")
		h.logger.Warn("cancel limit order failed", zap.Error(mapped))
		c.JSON(apiStatus(mapped), gin.H{"error": mapped.Message, "code": mapped.Code})
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitTakeOrder handles POST /v1/books/:pair/take-orders.
func (h *Handler) SubmitTakeOrder(c *gin.Context) {
	book, ok := h.bookOrNotFound(c)
	if !ok {
		return
	}

	var req SubmitTakeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, ok := parseSide(req.Side)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid side"})
		return
	}

	caller := callerIdentity(c)
	inAsset, inVault, outAsset, outVault := book.Quote, book.QuoteVault, book.Base, book.BaseVault
	if side != clob.Buy {
		inAsset, inVault, outAsset, outVault = book.Base, book.BaseVault, book.Quote, book.QuoteVault
	}

	if h.tokenService != nil {
		if err := h.tokenService.Transfer(c.Request.Context(), inAsset, caller, inVault, req.AmountIn); err != nil {
			h.logger.Error("take order input transfer failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "input transfer failed"})
			return
		}
	}

	global := h.registry.GlobalState()
	result, err := book.SubmitTakeOrder(h.registry.Now(), side, req.AmountIn, req.MinOut, global.TakerFeeInBps)
	if err != nil {
		if h.tokenService != nil {
			if refundErr := h.tokenService.TransferSigned(c.Request.Context(), inAsset, inVault, caller, req.AmountIn, book.SigningTag); refundErr != nil {
				h.logger.Error("take order input refund failed", zap.Error(refundErr))
			}
		}
		mapped := mapError(err, "take order not filled")
		h.logger.Warn("submit take order failed", zap.Error(mapped))
		c.JSON(apiStatus(mapped), gin.H{"error": mapped.Message, "code": mapped.Code})
		return
	}

	if h.tokenService != nil {
		if err := h.tokenService.TransferSigned(c.Request.Context(), outAsset, outVault, caller, result.AmountOut, book.SigningTag); err != nil {
			h.logger.Error("take order payout failed", zap.Error(err))
		}
	}

	if h.publisher != nil {
		pair := c.Param("pair")
		fill := events.Fill{
			Pair:      pair,
			Side:      req.Side,
			AmountIn:  req.AmountIn,
			AmountOut: result.AmountOut,
			FeeAmount: result.FeeAmount,
			Slot:      h.registry.Now(),
			Taker:     events.IdentityString(callerIdentity(c)),
		}
		go func() {
			if err := h.publisher.Publish(c.Request.Context(), pair, fill); err != nil {
				h.logger.Error("failed to publish fill event", zap.Error(err))
			}
		}()
	}

	c.JSON(http.StatusOK, SubmitTakeOrderResponse{AmountOut: result.AmountOut, FeeAmount: result.FeeAmount})
}

// SweepFees handles POST /v1/books/:pair/fees/sweep. It zeroes the book's
// fee accumulators and reports the swept amounts in the response; it makes
// no vault transfer to the fee collector.
func (h *Handler) SweepFees(c *gin.Context) {
	book, ok := h.bookOrNotFound(c)
	if !ok {
		return
	}
	base, quote := book.SweepFees()
	c.JSON(http.StatusOK, SweepFeesResponse{BaseAmount: base, QuoteAmount: quote})
}

// GetTWAP handles GET /v1/books/:pair/twap.
func (h *Handler) GetTWAP(c *gin.Context) {
	book, ok := h.bookOrNotFound(c)
	if !ok {
		return
	}
	twap := book.GetTWAP()
	agg := "0"
	if twap.ObservationAggregator != nil {
		agg = twap.ObservationAggregator.String()
	}
	c.JSON(http.StatusOK, TWAPResponse{
		LastUpdatedSlot:       twap.LastUpdatedSlot,
		LastObservation:       twap.LastObservation,
		ObservationAggregator: agg,
	})
}

// GetMarketMakerBalance handles GET /v1/books/:pair/makers/:authority.
func (h *Handler) GetMarketMakerBalance(c *gin.Context) {
	book, ok := h.bookOrNotFound(c)
	if !ok {
		return
	}
	authority := common.HexToAddress(c.Param("authority"))
	base, quote, err := book.GetMarketMakerBalances(authority)
	if err != nil {
		mapped := mapError(err, "market maker not found")
		c.JSON(apiStatus(mapped), gin.H{"error": mapped.Message, "code": mapped.Code})
		return
	}
	c.JSON(http.StatusOK, MarketMakerBalanceResponse{BaseBalance: base, QuoteBalance: quote})
}

// GetOrderIndex handles GET /v1/books/:pair/orders/:side/:refID.
func (h *Handler) GetOrderIndex(c *gin.Context) {
	book, ok := h.bookOrNotFound(c)
	if !ok {
		return
	}
	side, ok := parseSide(c.Param("side"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid side"})
		return
	}
	refID64, err := strconv.ParseUint(c.Param("refID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid refID"})
		return
	}
	makerIdx64, _ := strconv.ParseUint(c.Query("maker_idx"), 10, 8)

	slot, found := book.GetOrderIndex(side, uint32(refID64), uint8(makerIdx64))
	c.JSON(http.StatusOK, OrderIndexResponse{Slot: slot, Found: found})
}

// GetDepth handles GET /v1/books/:pair/depth.
func (h *Handler) GetDepth(c *gin.Context) {
	book, ok := h.bookOrNotFound(c)
	if !ok {
		return
	}
	bids := book.GetBestOrders(clob.Buy)
	asks := book.GetBestOrders(clob.Sell)
	resp := DepthResponse{
		Bids: make([]DepthLevel, len(bids)),
		Asks: make([]DepthLevel, len(asks)),
	}
	for i, l := range bids {
		resp.Bids[i] = DepthLevel{Amount: l.Amount, Price: l.Price}
	}
	for i, l := range asks {
		resp.Asks[i] = DepthLevel{Amount: l.Amount, Price: l.Price}
	}
	c.JSON(http.StatusOK, resp)
}

// AddMarketMaker handles POST /v1/makers.
func (h *Handler) AddMarketMaker(c *gin.Context) {
	var req AddMarketMakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book, ok := h.registry.Book(req.Pair)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found", "pair": req.Pair})
		return
	}

	authority := common.HexToAddress(req.Authority)
	if err := book.AddMarketMaker(req.Index, authority); err != nil {
		mapped := mapError(err, "add market maker rejected")
		c.JSON(apiStatus(mapped), gin.H{"error": mapped.Message, "code": mapped.Code})
		return
	}
	c.Status(http.StatusCreated)
}

// TopUpBalance handles POST /v1/makers/:idx/balance.
func (h *Handler) TopUpBalance(c *gin.Context) {
	idx64, err := strconv.ParseUint(c.Param("idx"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maker index"})
		return
	}
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book, ok := h.registry.Book(req.Pair)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found", "pair": req.Pair})
		return
	}

	caller := callerIdentity(c)
	if h.tokenService != nil {
		if req.BaseAmount > 0 {
			if err := h.tokenService.Transfer(c.Request.Context(), book.Base, caller, book.BaseVault, req.BaseAmount); err != nil {
				h.logger.Error("base vault transfer failed", zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "base vault transfer failed"})
				return
			}
		}
		if req.QuoteAmount > 0 {
			if err := h.tokenService.Transfer(c.Request.Context(), book.Quote, caller, book.QuoteVault, req.QuoteAmount); err != nil {
				h.logger.Error("quote vault transfer failed", zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "quote vault transfer failed"})
				return
			}
		}
	}

	// The vault transfer above must succeed before the bookkeeping credit
	// below, so a failed transfer never inflates a maker's recorded balance.
	book.TopUpBalance(uint8(idx64), req.BaseAmount, req.QuoteAmount)
	c.Status(http.StatusNoContent)
}

// WithdrawBalance handles DELETE /v1/makers/:idx/balance.
func (h *Handler) WithdrawBalance(c *gin.Context) {
	idx64, err := strconv.ParseUint(c.Param("idx"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maker index"})
		return
	}
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book, ok := h.registry.Book(req.Pair)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found", "pair": req.Pair})
		return
	}

	caller := callerIdentity(c)
	if err := book.WithdrawBalance(uint8(idx64), req.BaseAmount, req.QuoteAmount, caller); err != nil {
		mapped := mapError(err, "withdraw rejected")
		c.JSON(apiStatus(mapped), gin.H{"error": mapped.Message, "code": mapped.Code})
		return
	}

	if h.tokenService != nil {
		if req.BaseAmount > 0 {
			if err := h.tokenService.TransferSigned(c.Request.Context(), book.Base, book.BaseVault, caller, req.BaseAmount, book.SigningTag); err != nil {
				h.logger.Error("base vault payout failed, crediting balance back", zap.Error(err))
				book.TopUpBalance(uint8(idx64), req.BaseAmount, req.QuoteAmount)
				c.JSON(http.StatusBadGateway, gin.H{"error": "base vault payout failed"})
				return
			}
		}
		if req.QuoteAmount > 0 {
			if err := h.tokenService.TransferSigned(c.Request.Context(), book.Quote, book.QuoteVault, caller, req.QuoteAmount, book.SigningTag); err != nil {
				h.logger.Error("quote vault payout failed, crediting balance back", zap.Error(err))
				book.TopUpBalance(uint8(idx64), 0, req.QuoteAmount)
				c.JSON(http.StatusBadGateway, gin.H{"error": "quote vault payout failed"})
				return
			}
		}
	}

	c.Status(http.StatusNoContent)
}
