package api

import (
	"net/http"

	"chaintask-client/pkg/app"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// LoginRequiredMiddleware rejects requests while no auth session exists.
func LoginRequiredMiddleware(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.Session() == nil {
			log.Debug().Str("path", c.Request.URL.Path).Msg("Rejected unauthenticated request")
			c.JSON(http.StatusUnauthorized, defaultErrorResponse("login required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// WalletRequiredMiddleware rejects requests while no wallet is connected.
func WalletRequiredMiddleware(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.WalletAddress() == "" {
			log.Debug().Str("path", c.Request.URL.Path).Msg("Rejected request without wallet session")
			c.JSON(http.StatusPreconditionFailed, defaultErrorResponse("connect a wallet first"))
			c.Abort()
			return
		}
		c.Next()
	}
}
