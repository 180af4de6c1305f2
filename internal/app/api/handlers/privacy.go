package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxmarketing/backend/internal/app/service/account"
	"github.com/maxmarketing/backend/pkg/response"
)

// @Summary      Export user data
// @Description  Returns everything stored about the authenticated user (data-access request).
// @Tags         Privacy
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/privacy/export [get]
func ApiExportData(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		export, err := svc.ExportData(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			if errors.Is(err, account.ErrUserNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(export))
	}
}

// @Summary      Delete user data
// @Description  Data-erasure request: deletes generated content and anonymizes the account in place. Billing history is retained for audit.
// @Tags         Privacy
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/privacy/delete [post]
func ApiDeleteData(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Anonymize(c.Request.Context(), c.GetString("user_id")); err != nil {
			if errors.Is(err, account.ErrUserNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterPrivacyRoutes(r gin.IRouter, svc *account.Service) {
	r.GET("/export", ApiExportData(svc))
	r.POST("/delete", ApiDeleteData(svc))
}
