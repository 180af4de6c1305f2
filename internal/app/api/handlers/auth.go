package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maxmarketing/backend/internal/app/service/account"
	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/response"
)

type registerRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	Username *string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userView struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     *string    `json:"username"`
	IsPremium    bool       `json:"is_premium"`
	PremiumSince *time.Time `json:"premium_since"`
	CreatedAt    time.Time  `json:"created_at"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func toUserView(u *models.User) userView {
	return userView{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		IsPremium:    u.IsPremium,
		PremiumSince: u.PremiumSince,
		CreatedAt:    u.CreatedAt,
	}
}

// @Summary      Register
// @Description  Creates an account and returns a JWT.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body registerRequest true "Registration request"
// @Success      200  {object}  handlers.RespAuth
// @Router       /api/auth/register [post]
func ApiRegister(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		user, token, err := svc.Register(c.Request.Context(), req.Email, req.Password, req.Username)
		if err != nil {
			if errors.Is(err, account.ErrEmailTaken) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(authResponse{Token: token, User: toUserView(user)}))
	}
}

// @Summary      Login
// @Description  Authenticates by email/password and returns a JWT.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body loginRequest true "Login request"
// @Success      200  {object}  handlers.RespAuth
// @Router       /api/auth/login [post]
func ApiLogin(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		user, token, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, account.ErrInvalidCredentials) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(authResponse{Token: token, User: toUserView(user)}))
	}
}

// @Summary      Request password reset
// @Description  Emails a single-use reset link. Succeeds whether or not the address is registered.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body handlers.resetRequestBody true "Reset request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/auth/password-reset/request [post]
func ApiRequestPasswordReset(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetRequestBody
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

type resetRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type resetValidateBody struct {
	Token string `json:"token" binding:"required"`
}

type resetConfirmBody struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// @Summary      Validate reset token
// @Description  Checks a reset token without consuming it.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body handlers.resetValidateBody true "Token to validate"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/auth/password-reset/validate [post]
func ApiValidateResetToken(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetValidateBody
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.ValidateResetToken(c.Request.Context(), req.Token); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Reset password
// @Description  Consumes a reset token and sets a new password.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body handlers.resetConfirmBody true "Reset confirmation"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/auth/password-reset/confirm [post]
func ApiResetPassword(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetConfirmBody
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
			if errors.Is(err, account.ErrResetInvalid) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Current user
// @Description  Returns the authenticated user's profile.
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  handlers.RespAuth
// @Router       /api/me [get]
func ApiMe(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := svc.UserByID(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			if errors.Is(err, account.ErrUserNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(toUserView(user)))
	}
}

func RegisterAuthRoutes(r gin.IRouter, svc *account.Service) {
	r.POST("/register", ApiRegister(svc))
	r.POST("/login", ApiLogin(svc))
	r.POST("/password-reset/request", ApiRequestPasswordReset(svc))
	r.POST("/password-reset/validate", ApiValidateResetToken(svc))
	r.POST("/password-reset/confirm", ApiResetPassword(svc))
}
