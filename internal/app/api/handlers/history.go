package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/maxmarketing/backend/internal/app/service/history"
	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/response"
	"github.com/maxmarketing/backend/pkg/types"
)

type historyView struct {
	ID        string                `json:"id"`
	Module    types.GeneratorModule `json:"module"`
	Content   json.RawMessage       `json:"content"`
	CreatedAt time.Time             `json:"created_at"`
}

func toHistoryView(m models.History, _ int) historyView {
	return historyView{
		ID:        m.ID,
		Module:    m.Module,
		Content:   json.RawMessage(m.Content),
		CreatedAt: m.CreatedAt,
	}
}

// @Summary      List histories
// @Description  Lists the user's generated content, newest first. Filter by module with ?module=.
// @Tags         History
// @Produce      json
// @Param        module query string false "Generator module (avatar|pitch|plan|email|social)"
// @Success      200  {object}  handlers.RespHistories
// @Router       /api/histories [get]
func ApiListHistories(svc *history.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var module *types.GeneratorModule
		if v := c.Query("module"); v != "" {
			m := types.GeneratorModule(v)
			if !m.Valid() {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid module"))
				return
			}
			module = &m
		}
		rows, err := svc.List(c.Request.Context(), c.GetString("user_id"), module)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(lo.Map(rows, toHistoryView)))
	}
}

type createHistoryRequest struct {
	Module  types.GeneratorModule `json:"module" binding:"required"`
	Content map[string]any        `json:"content" binding:"required"`
}

// @Summary      Save history
// @Description  Stores one generated result in the user's history.
// @Tags         History
// @Accept       json
// @Produce      json
// @Param        request body createHistoryRequest true "History entry"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/histories [post]
func ApiCreateHistory(svc *history.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createHistoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if !req.Module.Valid() {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid module"))
			return
		}
		content, err := json.Marshal(req.Content)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		row, err := svc.Create(c.Request.Context(), c.GetString("user_id"), req.Module, content)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(row))
	}
}

// @Summary      Delete history
// @Description  Deletes one history entry owned by the user.
// @Tags         History
// @Produce      json
// @Param        id path string true "History id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/histories/{id} [delete]
func ApiDeleteHistory(svc *history.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.Delete(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
		if err != nil {
			if errors.Is(err, history.ErrNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterHistoryRoutes(r gin.IRouter, svc *history.Service) {
	r.GET("/histories", ApiListHistories(svc))
	r.POST("/histories", ApiCreateHistory(svc))
	r.DELETE("/histories/:id", ApiDeleteHistory(svc))
}
