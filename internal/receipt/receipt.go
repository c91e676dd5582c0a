package receipt

import (
	"bytes"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"text/template"
)

type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	host string
	port string
	from string
	auth smtp.Auth // nil for local dev (MailHog)
}

func NewSMTPSender() *SMTPSender {
	return &SMTPSender{
		host: getenv("SMTP_HOST", "localhost"),
		port: getenv("SMTP_PORT", "1025"),
		from: getenv("SMTP_FROM", "no-reply@example.local"),
		// auth: add when using a real provider (smtp.PlainAuth("", user, pass, host))
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	msg := buildRFC822(s.from, to, subject, body)
	return smtp.SendMail(addr, s.auth, s.from, []string{to}, msg)
}

func buildRFC822(from, to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&buf, "\r\n%s\r\n", body)
	return buf.Bytes()
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

var paymentReceiptTpl = template.Must(template.New("paymentReceipt").Parse(`Payment received, thank you!

Order:  {{.OrderID}}
Amount: {{printf "%.2f SEK" .Amount}}
Method: {{.Method}}
{{- if .TransactionID}}
Ref:    {{.TransactionID}}
{{- end}}
`))

// RenderPaymentReceipt renders the customer receipt for a completed payment.
// TransactionID is empty for manual settlements, which have no ledger entry.
func RenderPaymentReceipt(orderID, transactionID string, amount float64, method string) string {
	var buf bytes.Buffer
	_ = paymentReceiptTpl.Execute(&buf, map[string]any{
		"OrderID":       orderID,
		"TransactionID": transactionID,
		"Amount":        amount,
		"Method":        method,
	})
	return buf.String()
}

// Fallback logger sender (useful for dev without SMTP)
type LogSender struct{}

func (LogSender) Send(to, subject, body string) error {
	log.Printf("[Receipt] to=%s subject=%q body=%q", to, subject, body)
	return nil
}
