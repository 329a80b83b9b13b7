package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail, jobID, videoKey, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	msg := failureMessage(n.from, userEmail, jobID, videoKey, errorMsg)
	err := smtp.SendMail(addr, nil, n.from, []string{userEmail}, msg)
	if err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("job_id", jobID),
	)
	return nil
}

func failureMessage(from, to, jobID, videoKey, errorMsg string) []byte {
	subject := fmt.Sprintf("FIAP X - Cut Detection Failed [Job %s]", jobID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"Cut detection for your video could not be completed.\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Video: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Check the detection parameters or upload the video again.\r\n\r\n"+
			"-- FIAP X Cut Detection Service",
		jobID, videoKey, oneLine(errorMsg),
	)
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body))
}

// oneLine keeps multi-line ffmpeg output from breaking the message layout.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
