package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shopswift/storefront/services/common/identity"
	"github.com/shopswift/storefront/services/user-service/controllers"
)

// RegisterUserRoutes mounts the account endpoints under /api/users.
// Logout runs the guard leniently so an expired cookie can still be cleared.
func RegisterUserRoutes(r gin.IRouter, uc *controllers.UserController, guard *identity.Guard) {
	users := r.Group("/api/users")

	users.POST("", uc.Register)
	users.POST("/auth", uc.Login)
	users.POST("/logout", guard.Optional(), uc.Logout)

	authed := users.Group("", guard.Authenticate())
	authed.GET("/profile", uc.GetProfile)
	authed.PUT("/profile", uc.UpdateProfile)

	admin := authed.Group("", guard.AuthorizeAdmin())
	admin.GET("", uc.ListUsers)
	admin.GET("/:id", uc.GetUser)
	admin.PUT("/:id", uc.UpdateUser)
	admin.DELETE("/:id", uc.DeleteUser)
}
