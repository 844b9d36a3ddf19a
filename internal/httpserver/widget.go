package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/shipping"
	"storefront-cart/internal/widget"
)

// VisitorCookie names the cookie carrying the visitor id.
const VisitorCookie = "visitor_id"

const sessionKey = "widget_session"

type sessionProvider interface {
	Session(ctx context.Context, visitorID string) (*widget.Session, error)
}

// WidgetDeps are the collaborators of the widget API.
type WidgetDeps struct {
	Sessions       sessionProvider
	AllowedOrigins []string
	CookieMaxAge   time.Duration
	SecureCookie   bool
}

type addItemRequest struct {
	ID        domain.ProductID `json:"id"`
	Name      string           `json:"nombre"`
	UnitPrice float64          `json:"precio"`
	Quantity  int              `json:"cantidad"`
}

type quoteRequest struct {
	PostalCode string `json:"postalCode"`
}

type selectRequest struct {
	Index *int `json:"index"`
}

// BuildWidgetRouter wires the JSON surface a thin browser view drives.
func BuildWidgetRouter(logger *zap.Logger, deps WidgetDeps) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), zapLoggerMiddleware(logger))
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)

	w := router.Group("/widget", sessionMiddleware(deps, logger))
	w.GET("/state", stateHandler)
	w.POST("/items", addItemHandler)
	w.DELETE("/items/:index", removeItemHandler)
	w.POST("/catalog/refresh", refreshCatalogHandler)
	w.POST("/quote", quoteHandler)
	w.POST("/quote/select", selectShippingHandler)
	w.GET("/checkout", checkoutFormHandler)

	return router
}

// sessionMiddleware resolves the visitor cookie to a live session, issuing a
// new visitor id when the cookie is missing or malformed.
func sessionMiddleware(deps WidgetDeps, logger *zap.Logger) gin.HandlerFunc {
	maxAge := int(deps.CookieMaxAge / time.Second)
	return func(c *gin.Context) {
		visitorID, err := c.Cookie(VisitorCookie)
		if err != nil || !widget.ValidVisitorID(visitorID) {
			visitorID = widget.NewVisitorID()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(VisitorCookie, visitorID, maxAge, "/", "", deps.SecureCookie, true)

		s, err := deps.Sessions.Session(c.Request.Context(), visitorID)
		if err != nil {
			logger.Error("open widget session", zap.String("visitor_id", visitorID), zap.Error(err))
			writeError(c, err)
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *widget.Session {
	return c.MustGet(sessionKey).(*widget.Session)
}

func stateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, sessionFrom(c).ReadModel())
}

func addItemHandler(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("body", "malformed item"))
		return
	}
	s := sessionFrom(c)
	if err := s.AddItem(c.Request.Context(), req.ID, req.Name, req.UnitPrice, req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.ReadModel())
}

func removeItemHandler(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, domain.NewValidationError("index", "index must be a number"))
		return
	}
	s := sessionFrom(c)
	if err := s.RemoveItem(c.Request.Context(), index); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.ReadModel())
}

func refreshCatalogHandler(c *gin.Context) {
	s := sessionFrom(c)
	if err := s.RefreshCatalog(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.ReadModel())
}

func quoteHandler(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("body", "malformed quote request"))
		return
	}
	snap, err := sessionFrom(c).RequestQuote(c.Request.Context(), req.PostalCode)
	if err != nil {
		// A failed quote still has a state worth rendering.
		if domain.IsTransport(err) || errors.Is(err, domain.ErrSuperseded) {
			msg := shipping.MsgConnection
			if errors.Is(err, domain.ErrSuperseded) {
				msg = err.Error()
			}
			c.JSON(errorStatus(err), gin.H{"error": msg, "quote": snap})
			_ = c.Error(err)
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func selectShippingHandler(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		writeError(c, domain.NewValidationError("index", "index required"))
		return
	}
	s := sessionFrom(c)
	total, err := s.SelectShipping(*req.Index)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "state": s.ReadModel()})
}

func checkoutFormHandler(c *gin.Context) {
	h := sessionFrom(c).Handoff()
	form, err := h.FormValues()
	if err != nil {
		writeError(c, err)
		return
	}
	fields := make(map[string]string, len(form))
	for k := range form {
		fields[k] = form.Get(k)
	}
	c.JSON(http.StatusOK, gin.H{
		"handoff":       h,
		"form":          fields,
		"productsTotal": h.ProductsTotal(),
		"total":         h.Total(),
	})
}
