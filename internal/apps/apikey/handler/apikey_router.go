package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterAPIKeyRoutes registers all api key routes
func RegisterAPIKeyRoutes(router *gin.RouterGroup, spendHandler *SpendHandler) {
	spend := router.Group("/spend")
	{
		spend.GET("/logs", spendHandler.SpendLogs)
	}
}
