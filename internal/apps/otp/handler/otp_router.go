package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterOTPRoutes registers all OTP routes
func RegisterOTPRoutes(router *gin.RouterGroup, phoneOTPHandler *PhoneOTPHandler) {
	router.POST("/send-otp", phoneOTPHandler.SendOTP)
	router.POST("/verify-otp", phoneOTPHandler.VerifyOTP)
}
