package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopswift/storefront/services/common/auth"
	apperrors "github.com/shopswift/storefront/services/common/errors"
	"github.com/shopswift/storefront/services/common/identity"
	"github.com/shopswift/storefront/services/common/validation"
	"github.com/shopswift/storefront/services/user-service/models"
	"github.com/shopswift/storefront/services/user-service/services"
)

type UserController struct {
	userService   services.UserService
	secureCookies bool
}

func NewUserController(userService services.UserService, secureCookies bool) *UserController {
	return &UserController{userService: userService, secureCookies: secureCookies}
}

func actor(c *gin.Context) (identity.Identity, bool) {
	id, ok := identity.FromContext(c)
	if !ok {
		c.Error(apperrors.Unauthenticated("Not authorized"))
		return identity.Identity{}, false
	}
	return id, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.Error(apperrors.New(apperrors.KindValidation, validation.Describe(err), err))
		return false
	}
	return true
}

// Register handles POST /api/users
func (uc *UserController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bind(c, &req) {
		return
	}

	session, err := uc.userService.Register(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	auth.SetTokenCookie(c, session.Token, uc.secureCookies)
	c.JSON(http.StatusCreated, models.NewUserResponse(&session.User))
}

// Login handles POST /api/users/auth
func (uc *UserController) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bind(c, &req) {
		return
	}

	session, err := uc.userService.Login(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	auth.SetTokenCookie(c, session.Token, uc.secureCookies)
	c.JSON(http.StatusOK, models.NewUserResponse(&session.User))
}

// Logout handles POST /api/users/logout. It succeeds without a credential.
func (uc *UserController) Logout(c *gin.Context) {
	claims, _ := identity.ClaimsFromContext(c)
	if err := uc.userService.Logout(c.Request.Context(), claims); err != nil {
		c.Error(err)
		return
	}
	auth.ClearTokenCookie(c, uc.secureCookies)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// GetProfile handles GET /api/users/profile
func (uc *UserController) GetProfile(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	user, err := uc.userService.GetProfile(c.Request.Context(), who)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.NewUserResponse(user))
}

// UpdateProfile handles PUT /api/users/profile
func (uc *UserController) UpdateProfile(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !bind(c, &req) {
		return
	}

	user, err := uc.userService.UpdateProfile(c.Request.Context(), who, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.NewUserResponse(user))
}

// ListUsers handles GET /api/users (admin)
func (uc *UserController) ListUsers(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	all, err := uc.userService.ListUsers(c.Request.Context(), who)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, all)
}

// GetUser handles GET /api/users/:id (admin)
func (uc *UserController) GetUser(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	user, err := uc.userService.GetUser(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser handles PUT /api/users/:id (admin)
func (uc *UserController) UpdateUser(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req models.AdminUpdateRequest
	if !bind(c, &req) {
		return
	}

	user, err := uc.userService.UpdateUser(c.Request.Context(), who, c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.NewUserResponse(user))
}

// DeleteUser handles DELETE /api/users/:id (admin)
func (uc *UserController) DeleteUser(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	if err := uc.userService.DeleteUser(c.Request.Context(), who, c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User removed"})
}
