package api

import (
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	planService service.PlanService,
	log *logger.Logger,
) {
	if log == nil {
		log = logger.Nop()
	}
	planHandler := NewPlanHandler(planService, log)
	authMiddleware := AuthMiddleware(jwtSecret)

	router.Use(RequestLogger(log))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "tier": getUserTierFromContext(c)})
		})

		// --- Plan Routes ---
		plans := protected.Group("/plans")
		{
			plans.POST("", planHandler.CreatePlan)
			plans.GET("", planHandler.ListPlans)
			plans.GET("/:planId", planHandler.GetPlan)
			plans.DELETE("/:planId", planHandler.DeletePlan)
			plans.PATCH("/:planId/status", planHandler.UpdateStatus)
			plans.POST("/:planId/resume", planHandler.ResumeGeneration)
			plans.POST("/:planId/export", planHandler.ExportPlan)

			// --- Day Routes ---
			plans.GET("/:planId/days", planHandler.ListDays)
			plans.GET("/:planId/days/:day", planHandler.GetDay)
			plans.POST("/:planId/days/:day/start", planHandler.StartDay)
			plans.POST("/:planId/days/:day/complete", planHandler.CompleteDay)
			plans.POST("/:planId/days/:day/skip", planHandler.SkipDay)
		}
	}
}
