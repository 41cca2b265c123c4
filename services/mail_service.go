package services

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Mailer delivers one-time codes to a farmer's email address.
type Mailer interface {
	SendOTPEmail(email, otp string) error
}

// MailService sends mail through the configured SMTP relay.
type MailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewMailService() *MailService {
	port := 587
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}

	return &MailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     port,
		username: os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASS"),
		from:     from,
	}
}

// SendOTPEmail delivers the verification code with the FarmHelper template.
func (s *MailService) SendOTPEmail(email, otp string) error {
	if s.host == "" || s.username == "" {
		return fmt.Errorf("SMTP not configured: set SMTP_HOST and SMTP_USER")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "FarmHelper - Please verify your account")
	m.SetBody("text/html", otpEmailBody(otp))

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	return nil
}

func otpEmailBody(otp string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Your OTP Code</title></head>
<body style="margin:0;padding:0;font-family:'Segoe UI',Arial,sans-serif;background-color:#f7f9fc;">
  <table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="background-color:#ffffff;border-radius:12px;margin-top:30px;">
    <tr><td align="center" style="padding:30px 0 20px 0;">
      <h1 style="margin:0;font-size:32px;color:#333333;font-weight:700;">Farm Helper</h1>
    </td></tr>
    <tr><td style="padding:0 40px;">
      <h2 style="font-size:26px;margin:20px 0 10px 0;color:#2a2a2a;text-align:center;">Verify Your Identity</h2>
      <p style="font-size:16px;color:#555555;line-height:1.6;text-align:center;">
        We received a request to access your account. To proceed, please use the following One-Time Password (OTP):
      </p>
    </td></tr>
    <tr><td align="center" style="padding:20px 40px;">
      <div style="background-color:#e6f2ff;border-radius:10px;padding:25px;border:1px solid #cce0ff;">
        <p style="font-size:42px;font-weight:bold;color:#007bff;margin:0;letter-spacing:8px;">%s</p>
      </div>
    </td></tr>
    <tr><td style="padding:0 40px 30px 40px;">
      <p style="font-size:14px;color:#888888;text-align:center;">
        This code is valid for <strong>15 minutes</strong> and can only be used once.
      </p>
      <p style="font-size:14px;color:#666666;text-align:center;border-top:1px solid #f0f0f0;padding-top:20px;">
        If you did not request this code, please disregard this email.
      </p>
    </td></tr>
  </table>
</body>
</html>`, otp)
}
