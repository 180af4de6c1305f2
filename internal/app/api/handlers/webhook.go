package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/internal/app/service/ingest"
	"github.com/maxmarketing/backend/pkg/logctx"
	"github.com/maxmarketing/backend/pkg/types"
)

// Webhook endpoints answer real HTTP status codes, not the API
// envelope: providers key their retry behavior off the status line.
//   - 200: processed, already processed, or authentic-but-unmappable
//   - 400: signature rejected; the delivery is treated as never received
//   - 500: storage failure; the provider should redeliver

// @Summary      Stripe webhook
// @Description  Receives Stripe events. The raw body is signature-verified before any processing.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /webhook/stripe [post]
func ApiStripeWebhook(ing ingest.Ingestor, log *zap.SugaredLogger) gin.HandlerFunc {
	return webhookHandler(ing, log, types.PaymentProviderStripe)
}

// @Summary      PayPal webhook
// @Description  Receives PayPal events. The delivery is verified against PayPal before any processing.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /webhook/paypal [post]
func ApiPayPalWebhook(ing ingest.Ingestor, log *zap.SugaredLogger) gin.HandlerFunc {
	return webhookHandler(ing, log, types.PaymentProviderPayPal)
}

func webhookHandler(ing ingest.Ingestor, log *zap.SugaredLogger, provider types.PaymentProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		err = ing.Handle(c.Request.Context(), provider, body, c.Request.Header)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"received": "true"})
		case errors.Is(err, ingest.ErrEventAlreadyProcessed):
			c.JSON(http.StatusOK, gin.H{"received": "true"})
		case errors.Is(err, ingest.ErrSignatureInvalid):
			logctx.FromGin(c, log).Warnw("webhook_signature_rejected", "provider", provider, "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		default:
			logctx.FromGin(c, log).Errorw("webhook_processing_failed", "provider", provider, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		}
	}
}

func RegisterWebhookRoutes(r gin.IRouter, ing ingest.Ingestor, log *zap.SugaredLogger) {
	r.POST("/stripe", ApiStripeWebhook(ing, log))
	r.POST("/paypal", ApiPayPalWebhook(ing, log))
}
