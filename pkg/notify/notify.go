package notify

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"chaintask-client/pkg/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	gomail "gopkg.in/mail.v2"
)

const maxRetained = 50

// Notification is one transient user-visible message. Every failure path in
// the client funnels through here; none are fatal.
type Notification struct {
	ID      string    `json:"id"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier logs notifications and retains a bounded ring of recent ones for
// the gateway to expose. When SMTP is configured, metadata divergences are
// additionally mailed to the alert address.
type Notifier struct {
	cfg *config.Config

	mu     sync.Mutex
	recent []Notification
}

func New(cfg *config.Config) *Notifier {
	return &Notifier{cfg: cfg}
}

func (n *Notifier) Info(msg string) {
	log.Info().Msg(msg)
	n.record("info", msg)
}

func (n *Notifier) Error(msg string) {
	log.Error().Msg(msg)
	n.record("error", msg)
}

// PendingTx surfaces a broadcast transaction immediately, before it is
// mined, with an explorer link the user can follow.
func (n *Notifier) PendingTx(hash string, explorerURL string) {
	msg := fmt.Sprintf("Transaction sent: %s (%s/tx/%s)", hash, explorerURL, hash)
	log.Info().Str("txHash", hash).Msg("Transaction sent")
	n.record("pending", msg)
}

func (n *Notifier) ConfirmedTx(hash string, cost string) {
	msg := fmt.Sprintf("Transaction confirmed: %s (cost %s)", hash, cost)
	log.Info().Str("txHash", hash).Str("cost", cost).Msg("Transaction confirmed")
	n.record("success", msg)
}

// DivergenceAlert reports an acknowledged divergence between the chain and
// the metadata store. The on-chain effect stands; this only notifies.
func (n *Notifier) DivergenceAlert(taskID int64, cause error) {
	msg := fmt.Sprintf("Task %d: on-chain state committed but metadata update failed: %v", taskID, cause)
	log.Error().Err(cause).Int64("taskId", taskID).Msg("Metadata out of sync with chain")
	n.record("error", msg)

	if n.cfg != nil && n.cfg.MailEnabled() {
		if err := n.sendMail("ChainTask metadata divergence", msg); err != nil {
			log.Error().Err(err).Msg("Failed to send divergence alert email")
		}
	}
}

// Recent returns a copy of the retained notifications, newest last.
func (n *Notifier) Recent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.recent))
	copy(out, n.recent)
	return out
}

func (n *Notifier) record(level string, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recent = append(n.recent, Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: msg,
		At:      time.Now(),
	})
	if len(n.recent) > maxRetained {
		n.recent = n.recent[len(n.recent)-maxRetained:]
	}
}

func (n *Notifier) sendMail(subject string, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.EmailAddress)
	m.SetHeader("To", n.cfg.AlertEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.EmailAddress, n.cfg.EmailPassword)
	d.TLSConfig = &tls.Config{ServerName: n.cfg.SMTPHost}

	return d.DialAndSend(m)
}
