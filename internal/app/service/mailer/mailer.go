package mailer

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/maxmarketing/backend/pkg/config"
)

// Service sends transactional emails over SMTP. Every send is
// fire-and-forget: billing and auth flows must never fail because the
// mail relay is down.
type Service struct {
	dialer *gomail.Dialer
	from   string
	domain string
	log    *zap.SugaredLogger
}

func NewService(cfg *config.Config, log *zap.SugaredLogger) *Service {
	s := &Service{from: cfg.SMTP.From, domain: cfg.Domain, log: log}
	if cfg.SMTP.Host != "" {
		s.dialer = gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	}
	return s
}

func (s *Service) WelcomePremium(email string) {
	s.send(email, "Bienvenue dans Max Marketing Premium ✨",
		fmt.Sprintf(`<h2>Bienvenue !</h2><p>Votre abonnement Premium est actif. Vous avez maintenant accès à toutes les fonctionnalités.</p><p>Accédez à votre tableau de bord : <a href="%s/dashboard">Ouvrir Max Marketing</a></p>`, s.domain))
}

func (s *Service) SubscriptionCanceled(email string, accessUntil *time.Time) {
	until := "la fin de période"
	if accessUntil != nil {
		until = accessUntil.Format("02/01/2006")
	}
	s.send(email, "Abonnement annulé - Max Marketing",
		fmt.Sprintf(`<p>Votre abonnement a été annulé. Vous conservez l'accès jusqu'au %s.</p>`, until))
}

func (s *Service) PaymentReceipt(email string, amountCents int64, currency string) {
	s.send(email, "Paiement reçu - Max Marketing Premium",
		fmt.Sprintf(`<p>Merci pour votre paiement de %s.</p><p>Votre abonnement reste actif.</p>`, formatAmount(amountCents, currency)))
}

func (s *Service) PaymentFailed(email string, amountCents int64, currency string) {
	s.send(email, "Échec de paiement - Max Marketing Premium",
		fmt.Sprintf(`<p>Le paiement de %s a échoué. Veuillez mettre à jour votre moyen de paiement depuis le portail client.</p>`, formatAmount(amountCents, currency)))
}

func (s *Service) PasswordReset(email, link string) {
	s.send(email, "Réinitialisation du mot de passe",
		fmt.Sprintf(`<p>Réinitialisez votre mot de passe : <a href="%s">%s</a></p><p>Ce lien expire dans 30 minutes.</p>`, link, link))
}

func (s *Service) send(to, subject, html string) {
	if s.dialer == nil {
		s.log.Infow("email_skipped", "to", to, "subject", subject)
		return
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	go func() {
		if err := s.dialer.DialAndSend(msg); err != nil {
			s.log.Errorw("email_send_failed", "to", to, "subject", subject, "err", err)
		}
	}()
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, strings.ToUpper(currency))
}
