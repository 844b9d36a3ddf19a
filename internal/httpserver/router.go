package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-cart/internal/clients/storefront"
	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/checkout"
	ordersvc "storefront-cart/internal/service/order"
)

type productLister interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
}

type shippingTypeLister interface {
	ListActive(ctx context.Context) ([]domain.ShippingType, error)
}

type ratesQuoter interface {
	Quote(ctx context.Context, in storefront.RatesRequest) (storefront.RatesResponse, error)
}

type orderService interface {
	Checkout(ctx context.Context, customer ordersvc.Customer, h checkout.Handoff) (*domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
}

// Deps are the collaborators of the storefront API.
type Deps struct {
	DB            Pinger
	Products      productLister
	ShippingTypes shippingTypeLister
	Rates         ratesQuoter
	Orders        orderService
}

// BuildRouter wires the storefront API the widget talks to.
func BuildRouter(logger *zap.Logger, deps Deps) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), zapLoggerMiddleware(logger))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))

	api := router.Group("/api")
	api.GET("/productos", listProductsHandler(deps.Products))
	api.GET("/envios", listShippingTypesHandler(deps.ShippingTypes))
	api.POST("/micorreo/rates", ratesHandler(deps.Rates, logger))
	api.POST("/checkout", checkoutHandler(deps.Orders))
	api.GET("/pedidos/:id", getOrderHandler(deps.Orders))

	return router
}

func listProductsHandler(products productLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := products.ListActive(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func listShippingTypesHandler(types shippingTypeLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := types.ListActive(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// ratesHandler always answers with the {ok, rates, error} envelope.
func ratesHandler(rates ratesQuoter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req storefront.RatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, storefront.RatesResponse{OK: false, Error: "invalid request body"})
			return
		}
		resp, err := rates.Quote(c.Request.Context(), req)
		if err != nil {
			logger.Error("rates lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, storefront.RatesResponse{OK: false, Error: "rates unavailable"})
			return
		}
		if !resp.OK {
			c.JSON(http.StatusBadRequest, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// checkoutHandler accepts the hidden-field form produced by the widget plus
// the customer contact fields.
func checkoutHandler(orders orderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			writeError(c, domain.NewValidationError("form", "malformed form"))
			return
		}
		form := c.Request.PostForm
		customer := ordersvc.Customer{
			Name:       form.Get("nombre"),
			Email:      form.Get("email"),
			Phone:      form.Get("telefono"),
			Address:    form.Get("direccion"),
			PostalCode: form.Get("cp"),
		}
		placed, err := orders.Checkout(c.Request.Context(), customer, checkout.ParseForm(form))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, placed)
	}
}

func getOrderHandler(orders orderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			writeError(c, domain.ErrNotFound)
			return
		}
		o, err := orders.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}
