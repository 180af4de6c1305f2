package handlers

import (
	"github.com/maxmarketing/backend/internal/app/service/ledger"
	"github.com/maxmarketing/backend/pkg/response"
	"github.com/maxmarketing/backend/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespAuth wraps authResponse in the standard envelope.
type RespAuth struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    authResponse             `json:"data"`
}

// RespCheckout wraps checkoutResponse in the standard envelope.
type RespCheckout struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    checkoutResponse         `json:"data"`
}

// RespSubscriptionStatus wraps the subscription-status payload in the standard envelope.
type RespSubscriptionStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    types.SubscriptionInfo   `json:"data"`
}

// RespGenerate wraps generateResponse in the standard envelope.
type RespGenerate struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    generateResponse         `json:"data"`
}

// RespHistories wraps the history listing in the standard envelope.
type RespHistories struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []historyView            `json:"data"`
}

// RespScanTransactions wraps ScanTransactionsResponse in the standard envelope.
type RespScanTransactions struct {
	Code    response.APIResponseCode        `json:"code"`
	Message string                          `json:"message"`
	Data    ledger.ScanTransactionsResponse `json:"data"`
}

// RespScanWebhookEvents wraps ScanWebhookEventsResponse in the standard envelope.
type RespScanWebhookEvents struct {
	Code    response.APIResponseCode         `json:"code"`
	Message string                           `json:"message"`
	Data    ledger.ScanWebhookEventsResponse `json:"data"`
}
