package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the public API. Webhooks sit outside the auth group: they
// are called by external systems, not by a signed-in user.
func NewRouter(handler *WalletHandler, jwtSecret string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1.GET("/currencies", handler.ListCurrencies)
	v1.GET("/market/prices/:code", handler.MarketPrice)

	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/payment", handler.ConfirmPayment)
		webhooks.POST("/fee-confirmation", handler.ConfirmFeePayment)
	}

	wallet := v1.Group("/wallet", Auth(jwtSecret))
	{
		wallet.POST("/deposit/orders", handler.CreateDepositOrder)
		wallet.POST("/send", handler.Send)
		wallet.POST("/swap", handler.Swap)
		wallet.POST("/withdraw", handler.Withdraw)
		wallet.GET("/balances", handler.Balances)
		wallet.GET("/transactions", handler.History)
	}

	fees := v1.Group("/service-fees", Auth(jwtSecret))
	{
		fees.GET("", handler.ListFeePlans)
		fees.POST("/:id/claim", handler.ClaimFeePlan)
	}

	v1.PUT("/preferences/assets/:code", Auth(jwtSecret), handler.SetAssetVisibility)

	return router
}
