package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxmarketing/backend/internal/app/service/ledger"
	"github.com/maxmarketing/backend/pkg/response"
)

// Operator listing over the billing audit tables. The webhook-events
// scan is the remediation path for deliveries stored with status error:
// filter on status, inspect the payload and result columns, fix the
// upstream data, then have the provider resend the event.

// @Summary      List payment transactions (Admin)
// @Description  Paginated, filterable listing of the charge ledger.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ledger.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespScanTransactions
// @Router       /api/v1/admin/list_transactions [post]
func ApiListTransactions(scanner ledger.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := scanner.ScanTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List webhook events (Admin)
// @Description  Paginated, filterable listing of the webhook idempotency log.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ledger.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespScanWebhookEvents
// @Router       /api/v1/admin/list_webhook_events [post]
func ApiListWebhookEvents(scanner ledger.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := scanner.ScanWebhookEvents(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, scanner ledger.Scanner) {
	r.POST("/list_transactions", ApiListTransactions(scanner))
	r.POST("/list_webhook_events", ApiListWebhookEvents(scanner))
}
