package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mrcolv86/bierserv/internal/models"

	"github.com/gin-gonic/gin"
)

// setupCRUDRoutes wires the plain-data routes for the dashboard: menu,
// tables, notifications, settings, reviews, reports. These are thin
// passthroughs to the store; the lifecycle manager is not involved.
func (h *Handler) setupCRUDRoutes(v1 *gin.RouterGroup) {
	v1.GET("/tables", h.listTables)
	v1.GET("/tables/:id", h.getTable)
	v1.POST("/tables", h.createTable)
	v1.DELETE("/tables/:id", h.deleteTable)

	v1.GET("/categories", h.listCategories)
	v1.POST("/categories", h.createCategory)
	v1.PUT("/categories/:id", h.updateCategory)
	v1.DELETE("/categories/:id", h.deleteCategory)

	v1.GET("/products", h.listProducts)
	v1.GET("/products/:id", h.getProduct)
	v1.POST("/products", h.createProduct)
	v1.PUT("/products/:id", h.updateProduct)
	v1.DELETE("/products/:id", h.deleteProduct)

	v1.GET("/notifications", h.listNotifications)
	v1.POST("/notifications/:id/read", h.markNotificationRead)

	v1.GET("/settings", h.listSettings)
	v1.PUT("/settings/:key", h.upsertSetting)

	v1.POST("/reviews", h.createReview)

	v1.GET("/reports/daily", h.dailyReport)
}

func (h *Handler) listTables(c *gin.Context) {
	tables, err := h.store.GetTables(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

func (h *Handler) getTable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	table, err := h.store.GetTableByID(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handler) createTable(c *gin.Context) {
	var req struct {
		Number int `json:"number" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	table := &models.Table{Number: req.Number, Status: models.TableStatusFree}
	if err := h.store.CreateTable(c.Request.Context(), table); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

func (h *Handler) deleteTable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteTable(c.Request.Context(), id); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.store.GetCategories(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) createCategory(c *gin.Context) {
	var category models.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	if err := h.store.CreateCategory(c.Request.Context(), &category); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var category models.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}
	category.ID = id

	if err := h.store.UpdateCategory(c.Request.Context(), &category); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteCategory(c.Request.Context(), id); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if categoryParam := c.Query("category_id"); categoryParam != "" {
		categoryID, err := strconv.ParseInt(categoryParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid category_id"})
			return
		}
		products, err := h.store.GetProductsByCategoryID(ctx, categoryID)
		if err != nil {
			errorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
		return
	}

	products, err := h.store.GetProducts(ctx)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	product, err := h.store.GetProductByID(ctx, id)
	if err != nil {
		errorResponse(c, err)
		return
	}

	variations, err := h.store.GetVariationsByProductID(ctx, id)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product, "variations": variations})
}

func (h *Handler) createProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	if err := h.store.CreateProduct(c.Request.Context(), &product); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}
	product.ID = id

	if err := h.store.UpdateProduct(c.Request.Context(), &product); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteProduct(c.Request.Context(), id); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listNotifications(c *gin.Context) {
	recipientID, _ := strconv.ParseInt(c.DefaultQuery("recipient_id", "0"), 10, 64)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	notifications, err := h.store.GetNotifications(c.Request.Context(), recipientID, limit)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.store.MarkNotificationRead(c.Request.Context(), id); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listSettings(c *gin.Context) {
	settings, err := h.store.GetSettings(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *Handler) upsertSetting(c *gin.Context) {
	key := c.Param("key")

	var req struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	if err := h.store.UpsertSetting(c.Request.Context(), key, req.Value); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value})
}

func (h *Handler) createReview(c *gin.Context) {
	var review models.Review
	if err := c.ShouldBindJSON(&review); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	if review.Rating < 1 || review.Rating > 5 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation", "message": "rating must be 1-5"})
		return
	}

	if err := h.store.CreateReview(c.Request.Context(), &review); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) dailyReport(c *gin.Context) {
	const layout = "2006-01-02"

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(layout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid from date"})
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(layout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "invalid to date"})
			return
		}
		to = parsed
	}

	rows, err := h.store.GetDailySales(c.Request.Context(), from, to)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"daily_sales": rows})
}
