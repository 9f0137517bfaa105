// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/models"
	"github.com/javajoker/commission-engine/internal/utils"
)

const entityNotification = "admin_notification"

const (
	NotificationStatusUnread = "unread"
	NotificationStatusRead   = "read"
)

type NotificationService struct {
	store
	config *config.Config
	dialer *gomail.Dialer

	// outbox feeds the sender goroutine; Dispatch never waits on SMTP.
	outbox chan *gomail.Message
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// Notification describes an admin notice about a ledger resource.
type Notification struct {
	Type         string
	Title        string
	Message      string
	Priority     string
	ResourceType string
	ResourceID   uuid.UUID
}

type NotificationFilter struct {
	utils.PaginationParams
	Status string
}

func NewNotificationService(db *gorm.DB, cfg *config.Config) *NotificationService {
	s := &NotificationService{
		store:  newStore(db, cfg.Database.QueryTimeout),
		config: cfg,
	}
	if cfg.Email.SMTPHost != "" {
		s.dialer = gomail.NewDialer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUsername, cfg.Email.SMTPPassword)

		size := cfg.Email.QueueSize
		if size <= 0 {
			size = 100
		}
		s.outbox = make(chan *gomail.Message, size)
		s.done = make(chan struct{})
		go s.runSender()
	}
	return s
}

func (s *NotificationService) runSender() {
	defer close(s.done)
	for m := range s.outbox {
		if err := s.dialer.DialAndSend(m); err != nil {
			logrus.WithError(err).WithField("subject", m.GetHeader("Subject")).Warn("Failed to send notification email")
		}
	}
}

// Close stops accepting email and waits for queued messages until ctx expires.
func (s *NotificationService) Close(ctx context.Context) error {
	if s.outbox == nil {
		return nil
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.outbox)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record stores the notification inside tx so it commits with the change it reports.
func (s *NotificationService) Record(tx *gorm.DB, n Notification) (*models.AdminNotification, error) {
	priority := n.Priority
	if priority == "" {
		priority = "medium"
	}
	id := n.ResourceID

	notification := &models.AdminNotification{
		Type:                n.Type,
		Title:               n.Title,
		Message:             n.Message,
		Priority:            priority,
		Status:              NotificationStatusUnread,
		RelatedResourceType: n.ResourceType,
		RelatedResourceID:   &id,
	}
	if err := tx.Create(notification).Error; err != nil {
		return nil, persistenceError("RecordNotification", entityNotification, "", err)
	}
	return notification, nil
}

// Dispatch queues an email for a committed notification. A full queue drops the email with a warning.
func (s *NotificationService) Dispatch(notification *models.AdminNotification) {
	if notification == nil {
		return
	}

	body, err := renderTemplate(notificationEmailTemplate, map[string]interface{}{
		"Title":        notification.Title,
		"Message":      notification.Message,
		"Priority":     notification.Priority,
		"ResourceType": notification.RelatedResourceType,
		"ResourceID":   notification.RelatedResourceID,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to render notification email")
		return
	}

	if err := s.enqueueEmail(s.config.Email.AdminEmail, notification.Title, body); err != nil {
		logrus.WithError(err).WithField("notification_id", notification.ID).Warn("Failed to queue notification email")
	}
}

func (s *NotificationService) ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.AdminNotification, int64, error) {
	const op = "ListNotifications"

	db, cancel := s.conn(ctx)
	defer cancel()

	query := db.Model(&models.AdminNotification{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError(op, entityNotification, "", err)
	}

	var notifications []models.AdminNotification
	err := utils.ApplyPagination(query, filter.PaginationParams).
		Order("created_at DESC").Order("id DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, 0, persistenceError(op, entityNotification, "", err)
	}
	return notifications, total, nil
}

func (s *NotificationService) MarkNotificationRead(ctx context.Context, id uuid.UUID) (*models.AdminNotification, error) {
	const op = "MarkNotificationRead"

	db, cancel := s.conn(ctx)
	defer cancel()

	var notification models.AdminNotification
	if err := db.Where("id = ?", id).First(&notification).Error; err != nil {
		return nil, persistenceError(op, entityNotification, id.String(), err)
	}
	if notification.Status == NotificationStatusRead {
		return &notification, nil
	}

	now := normalizeTime(timeNow())
	err := db.Model(&notification).Updates(map[string]interface{}{
		"status":  NotificationStatusRead,
		"read_at": now,
	}).Error
	if err != nil {
		return nil, persistenceError(op, entityNotification, id.String(), err)
	}
	notification.Status = NotificationStatusRead
	notification.ReadAt = &now
	return &notification, nil
}

func (s *NotificationService) enqueueEmail(to, subject, body string) error {
	if s.outbox == nil || to == "" {
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("Email not configured, skipping send")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.Email.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("email queue closed")
	}

	select {
	case s.outbox <- m:
		return nil
	default:
		return fmt.Errorf("email queue full (%d pending)", cap(s.outbox))
	}
}

func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const notificationEmailTemplate = `
<!DOCTYPE html>
<html>
<body>
	<h2>{{.Title}}</h2>
	<p>{{.Message}}</p>
	<p>Priority: {{.Priority}}</p>
	<p>Resource: {{.ResourceType}} {{.ResourceID}}</p>
	<p>Commission Engine</p>
</body>
</html>`
