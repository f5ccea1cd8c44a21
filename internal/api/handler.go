package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mrcolv86/bierserv/internal/service"
	"github.com/mrcolv86/bierserv/internal/store"
	"github.com/mrcolv86/bierserv/internal/util"
	"github.com/mrcolv86/bierserv/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService *service.OrderService
	store        *store.Store
	wsHandler    *ws.Handler
}

// NewHandler creates a new HTTP handler
func NewHandler(orderService *service.OrderService, st *store.Store, wsHandler *ws.Handler) *Handler {
	return &Handler{
		orderService: orderService,
		store:        st,
		wsHandler:    wsHandler,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws", h.wsHandler.Serve)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)
		v1.POST("/orders/:id/items", h.addOrderItem)
		v1.PATCH("/items/:id", h.updateOrderItem)
		v1.DELETE("/items/:id", h.deleteOrderItem)

		v1.POST("/tables/:id/waiter-call", h.callWaiter)

		h.setupCRUDRoutes(v1)
	}
}

// errorResponse maps the error taxonomy to HTTP status codes: not-found to
// 404, validation failures to 422, everything else to 500.
func errorResponse(c *gin.Context, err error) {
	kind := "internal"
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, store.ErrNotFound):
		kind = "not_found"
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrUnknownStatus),
		errors.Is(err, service.ErrNoItems),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrVariationMismatch):
		kind = "validation"
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{
		"error":   kind,
		"message": err.Error(),
	})
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": err.Error(),
		})
		return
	}

	payload, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, payload)
}

func (h *Handler) listOrders(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	payload, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": err.Error(),
		})
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) addOrderItem(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.OrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": err.Error(),
		})
		return
	}

	payload, err := h.orderService.AddOrderItem(c.Request.Context(), orderID, req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, payload)
}

func (h *Handler) updateOrderItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Quantity int    `json:"quantity" binding:"required,min=1"`
		Notes    string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": err.Error(),
		})
		return
	}

	payload, err := h.orderService.UpdateOrderItem(c.Request.Context(), itemID, req.Quantity, req.Notes)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) deleteOrderItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}

	payload, err := h.orderService.DeleteOrderItem(c.Request.Context(), itemID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, payload)
}

func (h *Handler) callWaiter(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.HandleWaiterCall(c.Request.Context(), tableID); err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "requested"})
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": "invalid id",
		})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
