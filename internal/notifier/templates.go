package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/good-yellow-bee/salescope/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

// Templates holds parsed notification templates.
type Templates struct {
	html  *template.Template
	plain *template.Template
}

// AnomalyData contains anomaly summary data for template rendering.
type AnomalyData struct {
	TenantName    string
	Metric        string
	Severity      string
	SeverityColor string
	ObservedAt    string
	ObservedValue string
	BaselineMean  string
	BaselineStdev string
	ZScore        string
}

// LoadTemplates loads the embedded notification templates.
func LoadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}

	htmlTmpl, err := template.New("anomaly.html").Funcs(funcs).ParseFS(templateFS, "templates/anomaly.html")
	if err != nil {
		return nil, err
	}

	plainTmpl, err := template.New("anomaly.txt").Funcs(funcs).ParseFS(templateFS, "templates/anomaly.txt")
	if err != nil {
		return nil, err
	}

	return &Templates{
		html:  htmlTmpl,
		plain: plainTmpl,
	}, nil
}

// Render builds the complete notification message for an anomaly.
func (t *Templates) Render(anomaly *models.Anomaly, tenantName string) (*Message, error) {
	data := anomalyToData(anomaly, tenantName)

	var html bytes.Buffer
	if err := t.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render HTML template: %w", err)
	}

	var plain bytes.Buffer
	if err := t.plain.Execute(&plain, data); err != nil {
		return nil, fmt.Errorf("render plain template: %w", err)
	}

	subject := fmt.Sprintf("[%s] Salescope Alert: %s anomaly for %s",
		strings.ToUpper(string(anomaly.Severity)), anomaly.Metric, tenantName)

	return &Message{
		Subject:   subject,
		PlainBody: plain.String(),
		HTMLBody:  html.String(),
	}, nil
}

// severityColor returns the display color for a severity level.
func severityColor(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "#d32f2f" // red
	case models.SeverityWarning:
		return "#f57c00" // orange
	default:
		return "#757575" // gray
	}
}

// anomalyToData converts an anomaly to template data.
func anomalyToData(anomaly *models.Anomaly, tenantName string) AnomalyData {
	return AnomalyData{
		TenantName:    tenantName,
		Metric:        anomaly.Metric,
		Severity:      string(anomaly.Severity),
		SeverityColor: severityColor(anomaly.Severity),
		ObservedAt:    anomaly.ObservedAt.Format("2006-01-02 15:04:05 MST"),
		ObservedValue: fmt.Sprintf("%.2f", anomaly.ObservedValue),
		BaselineMean:  fmt.Sprintf("%.2f", anomaly.BaselineMean),
		BaselineStdev: fmt.Sprintf("%.2f", anomaly.BaselineStdDev),
		ZScore:        fmt.Sprintf("%.2f", anomaly.ZScore),
	}
}
