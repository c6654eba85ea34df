package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// sesSender is the subset of the SES client the service calls
type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	log        *zap.Logger
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that only logs.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, log *zap.Logger) (*EmailService, error) {
	log = log.Named("email")
	if fromEmail == "" {
		log.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{log: log}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, log), nil
}

func newEmailService(client sesSender, fromEmail, fromName, appBaseURL string, log *zap.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		log:        log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendPointsAwarded tells a user about a new ledger entry
func (s *EmailService) SendPointsAwarded(ctx context.Context, n PointsNotification) error {
	if !s.enabled {
		s.log.Debug("skipping email send (service disabled)", zap.String("to", n.ToEmail))
		return nil
	}

	name := n.ToName
	if name == "" {
		name = n.ToEmail
	}
	subject := fmt.Sprintf("You earned %d points", n.Points)
	link := fmt.Sprintf("%s/blocks/%s", s.appBaseURL, n.BlockID)

	what := "your progress"
	if n.BlockTitle != "" {
		what = fmt.Sprintf("%q", n.BlockTitle)
	}
	reason := ""
	if n.Reason != "" {
		reason = "Reason: " + n.Reason
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi %s,</p>
	<p>You were awarded <strong>%d points</strong> for %s.</p>
	<p>%s</p>
	<p><a href="%s">View the block</a></p>
	<p style="font-size: 12px; color: #666;">This is an automated email from Nuclear. Please do not reply.</p>
</body>
</html>
`, html.EscapeString(name), n.Points, html.EscapeString(what), html.EscapeString(reason), link)

	textBody := fmt.Sprintf(`Hi %s,

You were awarded %d points for %s.
%s

View the block: %s

---
This is an automated email from Nuclear. Please do not reply.
`, name, n.Points, what, reason, link)

	return s.sendEmail(ctx, n.ToEmail, subject, htmlBody, textBody)
}

func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	s.log.Info("email sent", zap.String("to", toEmail), zap.String("subject", subject),
		zap.String("message_id", aws.ToString(result.MessageId)))
	return nil
}
