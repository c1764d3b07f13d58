package middleware

import (
	"log"
	"time"

	"otp-gateway/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupCORS configures CORS middleware for the configured frontend origins.
// "*" or "all" in the list allows every origin.
func SetupCORS(env string, origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if allowAll(env, origins) {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}

	return cors.New(config)
}

func allowAll(env string, origins []string) bool {
	if len(origins) == 0 {
		if utils.IsProduction(env) {
			log.Fatal("FRONTEND_ORIGINS must be set in production")
		}
		return true
	}

	for _, o := range origins {
		if o == "*" || o == "all" || o == "ALL" {
			return true
		}
	}
	return false
}
