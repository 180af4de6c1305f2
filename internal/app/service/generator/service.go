package generator

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/maxmarketing/backend/internal/app/service/history"
	"github.com/maxmarketing/backend/internal/platform/llm"
	"github.com/maxmarketing/backend/pkg/logctx"
	"github.com/maxmarketing/backend/pkg/types"
)

// Completer is the LLM gateway surface the generators need.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

type AvatarRequest struct {
	Business string `json:"business" binding:"required"`
	Product  string `json:"product" binding:"required"`
	Goal     string `json:"goal"`
}

type EmailRequest struct {
	Product   string `json:"product" binding:"required"`
	Objective string `json:"objective" binding:"required"`
	Audience  string `json:"audience" binding:"required"`
	Tone      string `json:"tone"`
	Offer     string `json:"offer"`
}

type PitchRequest struct {
	Product  string `json:"product" binding:"required"`
	Problem  string `json:"problem" binding:"required"`
	Market   string `json:"market"`
	Traction string `json:"traction"`
}

type PlanRequest struct {
	Business  string `json:"business" binding:"required"`
	Objective string `json:"objective" binding:"required"`
	Target    string `json:"target" binding:"required"`
	Duration  string `json:"duration"`
	Budget    string `json:"budget"`
	Channels  string `json:"channels"`
}

type SocialRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// ChatTurn is one prior message of the assistant conversation. The
// client resends the whole thread on every call; nothing is stored
// server-side.
type ChatTurn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

type ChatRequest struct {
	Messages []ChatTurn `json:"messages" binding:"required,min=1,dive"`
}

// Service proxies generation requests to the LLM gateway and archives
// results in the user's history.
type Service struct {
	llm       Completer
	histories *history.Service
	log       *zap.SugaredLogger
}

func NewService(llm Completer, histories *history.Service, log *zap.SugaredLogger) *Service {
	return &Service{llm: llm, histories: histories, log: log}
}

func (s *Service) Avatar(ctx context.Context, userID string, req AvatarRequest) (string, error) {
	return s.generate(ctx, userID, types.GeneratorModuleAvatar, avatarSystemPrompt, buildAvatarPrompt(req), req)
}

func (s *Service) Email(ctx context.Context, userID string, req EmailRequest) (string, error) {
	return s.generate(ctx, userID, types.GeneratorModuleEmail, emailSystemPrompt, buildEmailPrompt(req), req)
}

func (s *Service) Pitch(ctx context.Context, userID string, req PitchRequest) (string, error) {
	return s.generate(ctx, userID, types.GeneratorModulePitch, pitchSystemPrompt, buildPitchPrompt(req), req)
}

func (s *Service) Plan(ctx context.Context, userID string, req PlanRequest) (string, error) {
	return s.generate(ctx, userID, types.GeneratorModulePlan, planSystemPrompt, buildPlanPrompt(req), req)
}

func (s *Service) Social(ctx context.Context, userID string, req SocialRequest) (string, error) {
	return s.generate(ctx, userID, types.GeneratorModuleSocial, socialSystemPrompt, buildSocialPrompt(req), req)
}

// Chat answers one turn of the marketing assistant conversation.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	msgs := make([]llm.Message, 0, len(req.Messages)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: chatSystemPrompt})
	for _, turn := range req.Messages {
		msgs = append(msgs, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return s.llm.Chat(ctx, msgs)
}

func (s *Service) generate(ctx context.Context, userID string, module types.GeneratorModule, system, user string, params any) (string, error) {
	result, err := s.llm.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	s.archive(ctx, userID, module, params, result)
	return result, nil
}

// archive saves the generation to history without blocking or failing
// the response.
func (s *Service) archive(ctx context.Context, userID string, module types.GeneratorModule, params any, result string) {
	log := logctx.FromCtx(ctx, s.log)
	content, err := json.Marshal(map[string]any{"params": params, "result": result})
	if err != nil {
		log.Errorw("history_marshal_failed", "module", module, "err", err)
		return
	}
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.histories.Create(bg, userID, module, content); err != nil {
			log.Errorw("history_save_failed", "module", module, "err", err)
		}
	}()
}
