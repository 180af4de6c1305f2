package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxmarketing/backend/internal/app/service/generator"
	"github.com/maxmarketing/backend/pkg/response"
)

type generateResponse struct {
	Result string `json:"result"`
}

// @Summary      Generate customer avatar
// @Description  Generates a detailed ideal-customer profile. Premium only.
// @Tags         Generate
// @Accept       json
// @Produce      json
// @Param        request body generator.AvatarRequest true "Business description"
// @Success      200  {object}  handlers.RespGenerate
// @Router       /api/generate/avatar [post]
func ApiGenerateAvatar(svc *generator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generator.AvatarRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		result, err := svc.Avatar(c.Request.Context(), c.GetString("user_id"), req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(generateResponse{Result: result}))
	}
}

// @Summary      Generate marketing email
// @Description  Generates a complete marketing email. Premium only.
// @Tags         Generate
// @Accept       json
// @Produce      json
// @Param        request body generator.EmailRequest true "Campaign description"
// @Success      200  {object}  handlers.RespGenerate
// @Router       /api/generate/email [post]
func ApiGenerateEmail(svc *generator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generator.EmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		result, err := svc.Email(c.Request.Context(), c.GetString("user_id"), req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(generateResponse{Result: result}))
	}
}

// @Summary      Generate investor pitch
// @Description  Generates a structured pitch deck text. Premium only.
// @Tags         Generate
// @Accept       json
// @Produce      json
// @Param        request body generator.PitchRequest true "Product description"
// @Success      200  {object}  handlers.RespGenerate
// @Router       /api/generate/pitch [post]
func ApiGeneratePitch(svc *generator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generator.PitchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		result, err := svc.Pitch(c.Request.Context(), c.GetString("user_id"), req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(generateResponse{Result: result}))
	}
}

// @Summary      Generate marketing plan
// @Description  Generates a phased marketing plan. Premium only.
// @Tags         Generate
// @Accept       json
// @Produce      json
// @Param        request body generator.PlanRequest true "Business and objective"
// @Success      200  {object}  handlers.RespGenerate
// @Router       /api/generate/plan [post]
func ApiGeneratePlan(svc *generator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generator.PlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		result, err := svc.Plan(c.Request.Context(), c.GetString("user_id"), req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(generateResponse{Result: result}))
	}
}

// @Summary      Generate social posts
// @Description  Generates post variants for four social networks. Premium only.
// @Tags         Generate
// @Accept       json
// @Produce      json
// @Param        request body generator.SocialRequest true "Post topic"
// @Success      200  {object}  handlers.RespGenerate
// @Router       /api/generate/social [post]
func ApiGenerateSocial(svc *generator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generator.SocialRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		result, err := svc.Social(c.Request.Context(), c.GetString("user_id"), req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(generateResponse{Result: result}))
	}
}

// @Summary      Marketing assistant chat
// @Description  Answers one turn of the assistant conversation. The client sends the whole thread each call. Premium only.
// @Tags         Generate
// @Accept       json
// @Produce      json
// @Param        request body generator.ChatRequest true "Conversation messages"
// @Success      200  {object}  handlers.RespGenerate
// @Router       /api/generate/chat [post]
func ApiChat(svc *generator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generator.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		result, err := svc.Chat(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(generateResponse{Result: result}))
	}
}

func RegisterGenerateRoutes(r gin.IRouter, svc *generator.Service) {
	r.POST("/avatar", ApiGenerateAvatar(svc))
	r.POST("/chat", ApiChat(svc))
	r.POST("/email", ApiGenerateEmail(svc))
	r.POST("/pitch", ApiGeneratePitch(svc))
	r.POST("/plan", ApiGeneratePlan(svc))
	r.POST("/social", ApiGenerateSocial(svc))
}
