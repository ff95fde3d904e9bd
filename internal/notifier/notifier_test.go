package notifier

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/salescope/internal/models"
)

func testAnomaly() *models.Anomaly {
	a := models.NewAnomaly("t1", models.MetricRevenue, time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC))
	a.ObservedValue = 1234.5
	a.BaselineMean = 400.25
	a.BaselineStdDev = 50
	a.ZScore = 16.69
	a.Severity = models.SeverityCritical
	return a
}

func TestTemplatesRender(t *testing.T) {
	templates, err := LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	msg, err := templates.Render(testAnomaly(), "Acme Stores")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if want := "[CRITICAL] Salescope Alert: revenue anomaly for Acme Stores"; msg.Subject != want {
		t.Errorf("subject = %q, want %q", msg.Subject, want)
	}

	for _, body := range []string{msg.PlainBody, msg.HTMLBody} {
		for _, fragment := range []string{"Acme Stores", "revenue", "1234.50", "400.25", "16.69"} {
			if !strings.Contains(body, fragment) {
				t.Errorf("body missing %q:\n%s", fragment, body)
			}
		}
	}
	if !strings.Contains(msg.PlainBody, "CRITICAL") {
		t.Errorf("plain body should carry the uppercased severity:\n%s", msg.PlainBody)
	}
	if !strings.Contains(msg.HTMLBody, severityColor(models.SeverityCritical)) {
		t.Error("HTML body should carry the severity color")
	}
}

func TestTemplatesRenderWarning(t *testing.T) {
	templates, err := LoadTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	a := testAnomaly()
	a.Severity = models.SeverityWarning
	msg, err := templates.Render(a, "Acme Stores")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(msg.Subject, "[WARNING]") {
		t.Errorf("subject = %q, want a [WARNING] prefix", msg.Subject)
	}
}

func TestEmailConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  EmailConfig
		wantErr bool
	}{
		{
			name:   "valid",
			config: EmailConfig{Host: "smtp.example.com", Port: 587, From: "alerts@example.com"},
		},
		{
			name:    "missing host",
			config:  EmailConfig{Port: 587, From: "alerts@example.com"},
			wantErr: true,
		},
		{
			name:    "missing port",
			config:  EmailConfig{Host: "smtp.example.com", From: "alerts@example.com"},
			wantErr: true,
		},
		{
			name:    "missing from",
			config:  EmailConfig{Host: "smtp.example.com", Port: 587},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSMTPMailerRejectsInvalidConfig(t *testing.T) {
	if _, err := NewSMTPMailer(EmailConfig{}); err == nil {
		t.Error("empty config should be rejected")
	}
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ops@example.com", "ops@example.com"},
		{"Ops Team <ops@example.com>", "ops@example.com"},
		{"<ops@example.com>", "ops@example.com"},
	}
	for _, tt := range tests {
		if got := extractEmail(tt.in); got != tt.want {
			t.Errorf("extractEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPermanent(t *testing.T) {
	permanent := &SendError{Permanent: true, Err: fmt.Errorf("rejected")}
	transient := &SendError{Err: fmt.Errorf("timeout")}

	if !IsPermanent(permanent) {
		t.Error("permanent send error should report permanent")
	}
	if IsPermanent(transient) {
		t.Error("transient send error should not report permanent")
	}
	if IsPermanent(errors.New("plain")) {
		t.Error("plain error should not report permanent")
	}
	if !IsPermanent(fmt.Errorf("send to x: %w", permanent)) {
		t.Error("wrapped permanent error should report permanent")
	}
}
