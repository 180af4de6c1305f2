package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxmarketing/backend/internal/app/service/checkout"
	"github.com/maxmarketing/backend/internal/app/service/entitlement"
	"github.com/maxmarketing/backend/pkg/response"
)

type checkoutResponse struct {
	URL string `json:"url"`
}

// @Summary      Start Stripe checkout
// @Description  Creates a hosted Stripe Checkout session for the premium plan and returns its URL.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/billing/checkout/stripe [post]
func ApiStripeCheckout(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := svc.StartStripeCheckout(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(checkoutResponse{URL: url}))
	}
}

// @Summary      Start PayPal checkout
// @Description  Creates a PayPal billing subscription and returns the approval URL.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/billing/checkout/paypal [post]
func ApiPayPalCheckout(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := svc.StartPayPalCheckout(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(checkoutResponse{URL: url}))
	}
}

// @Summary      Billing portal
// @Description  Opens a Stripe billing portal session for subscription self-service.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/billing/portal [post]
func ApiBillingPortal(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := svc.PortalSession(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			if errors.Is(err, checkout.ErrNoBillingAccount) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(checkoutResponse{URL: url}))
	}
}

// @Summary      Subscription status
// @Description  Recomputes entitlement from the subscription ledger and returns the subscribed flag plus period end.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespSubscriptionStatus
// @Router       /api/billing/status [get]
func ApiSubscriptionStatus(resolver entitlement.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := resolver.Resolve(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(decision.Info()))
	}
}

func RegisterBillingRoutes(r gin.IRouter, svc *checkout.Service, resolver entitlement.Resolver) {
	r.POST("/checkout/stripe", ApiStripeCheckout(svc))
	r.POST("/checkout/paypal", ApiPayPalCheckout(svc))
	r.POST("/portal", ApiBillingPortal(svc))
	r.GET("/status", ApiSubscriptionStatus(resolver))
}
