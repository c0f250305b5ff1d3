package api

import (
	"net/http"

	"fitpoints/workout-app/internal/domain"
	"fitpoints/workout-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	workoutService service.WorkoutService,
) {
	authHandler := NewAuthHandler(authService)
	workoutHandler := NewWorkoutHandler(workoutService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.GET("", workoutHandler.GetWorkouts)
			workoutGroup.POST("", workoutHandler.CreateWorkout)

			// Admin aggregation bypasses owner scoping; only admins reach it.
			workoutGroup.GET("/admin/all", RoleMiddleware(domain.RoleAdmin), workoutHandler.GetAllWorkoutsForAdmin)

			workoutGroup.GET("/:id", workoutHandler.GetWorkout)
			workoutGroup.GET("/:id/certificate", workoutHandler.GetCertificate)
			workoutGroup.PATCH("/:id", workoutHandler.UpdateWorkout)
			workoutGroup.DELETE("/:id", workoutHandler.DeleteWorkout)
		}
	}
}
