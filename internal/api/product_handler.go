package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shop-service/internal/entity"
	"shop-service/internal/service"
)

type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler creates a new instance of ProductHandler
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// List --> GET /api/products
func (h *ProductHandler) List(c echo.Context) error {
	products, err := h.productService.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

// Stats --> GET /api/products/stats
func (h *ProductHandler) Stats(c echo.Context) error {
	stats, err := h.productService.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Get --> GET /api/products/:id
func (h *ProductHandler) Get(c echo.Context) error {
	product, err := h.productService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// Create --> POST /api/products
func (h *ProductHandler) Create(c echo.Context) error {
	var in entity.ProductInput
	if err := bindAndValidate(c, &in, "Please provide all fields"); err != nil {
		return err
	}

	product, err := h.productService.Create(c.Request().Context(), currentUserID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}

// Update --> PUT /api/products/:id
func (h *ProductHandler) Update(c echo.Context) error {
	var patch entity.ProductPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload").SetInternal(err)
	}

	// the service reports field errors with specific messages
	product, err := h.productService.Update(c.Request().Context(), currentUserID(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// Delete --> DELETE /api/products/:id
func (h *ProductHandler) Delete(c echo.Context) error {
	if err := h.productService.Delete(c.Request().Context(), currentUserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}
