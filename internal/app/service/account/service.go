package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/config"
	"github.com/maxmarketing/backend/pkg/logctx"
	"github.com/maxmarketing/backend/pkg/tool"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrResetInvalid       = errors.New("reset token invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
)

// ResetMailer sends the password-reset link. Best-effort; the reset
// endpoint never leaks whether the send (or the user) exists.
type ResetMailer interface {
	PasswordReset(email, link string)
}

type Service struct {
	db     *gorm.DB
	tokens *TokenIssuer
	mailer ResetMailer
	cfg    *config.Config
	log    *zap.SugaredLogger
}

func NewService(db *gorm.DB, tokens *TokenIssuer, mailer ResetMailer, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{db: db, tokens: tokens, mailer: mailer, cfg: cfg, log: log}
}

func (s *Service) Register(ctx context.Context, email, password string, username *string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	user := &models.User{
		ID:           tool.GenerateUUIDV7(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RequestPasswordReset creates a single-use token and emails the reset
// link. It succeeds regardless of whether the email is known, so the
// endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	reset := &models.PasswordReset{
		Token:     tool.GenerateUUIDV7(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.cfg.Auth.ResetTTL),
	}
	if err := s.db.WithContext(ctx).Create(reset).Error; err != nil {
		return err
	}
	link := s.cfg.Domain + "/reset-password?token=" + reset.Token
	s.mailer.PasswordReset(user.Email, link)
	return nil
}

// ValidateResetToken reports whether a token is usable without
// consuming it.
func (s *Service) ValidateResetToken(ctx context.Context, token string) error {
	reset, err := s.resetByToken(ctx, token)
	if err != nil {
		return err
	}
	if reset.Expired(time.Now()) {
		return ErrResetInvalid
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	reset, err := s.resetByToken(ctx, token)
	if err != nil {
		return err
	}
	if reset.Expired(time.Now()) {
		return ErrResetInvalid
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", reset.UserID).
			Update("password_hash", string(hash)).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PasswordReset{}, "token = ?", reset.Token).Error
	})
}

// Export gathers everything stored about a user for the data-access
// request endpoint.
type Export struct {
	User          *models.User                `json:"user"`
	Subscriptions []models.Subscription       `json:"subscriptions"`
	Transactions  []models.PaymentTransaction `json:"transactions"`
	Histories     []models.History            `json:"histories"`
}

func (s *Service) ExportData(ctx context.Context, userID string) (*Export, error) {
	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &Export{User: user}
	db := s.db.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).Order("created_at").Find(&out.Subscriptions).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).Order("created_at").Find(&out.Transactions).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).Order("created_at").Find(&out.Histories).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Anonymize is the data-erasure request: generated content is deleted
// outright, while the user row is scrubbed in place so subscription and
// transaction history keep a valid owner.
func (s *Service) Anonymize(ctx context.Context, userID string) error {
	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.History{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.PasswordReset{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
			"email":              user.AnonymizedEmail(),
			"username":           nil,
			"password_hash":      "!erased",
			"is_premium":         false,
			"stripe_customer_id": nil,
			"paypal_customer_id": nil,
		}).Error
	})
	if err != nil {
		return err
	}
	logctx.FromCtx(ctx, s.log).Infow("user_anonymized", "user_id", userID)
	return nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) resetByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	err := s.db.WithContext(ctx).First(&reset, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResetInvalid
	}
	if err != nil {
		return nil, err
	}
	return &reset, nil
}
