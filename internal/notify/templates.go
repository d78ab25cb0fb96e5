package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Template names double as the metrics label.
const (
	TemplateBookingRequestClient = "booking_request_client"
	TemplateBookingRequestVet    = "booking_request_vet"
	TemplateBookingConfirmed     = "booking_confirmed"
	TemplateBookingCancelled     = "booking_cancelled"
	TemplateBookingCompleted     = "booking_completed"
	TemplateBookingRescheduled   = "booking_rescheduled"
	TemplateMeetingReady         = "meeting_ready"
	TemplateContact              = "contact"
)

type detail struct {
	Label string
	Value string
}

// mailView is the single shape every template renders.
type mailView struct {
	Subject  string
	Greeting string
	Lines    []string
	Details  []detail
	LinkText string
	LinkURL  string
}

func (v *mailView) add(label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	v.Details = append(v.Details, detail{Label: label, Value: value})
}

const textLayout = `{{.Greeting}}

{{range .Lines}}{{.}}
{{end}}{{if .Details}}
{{range .Details}}{{.Label}}: {{.Value}}
{{end}}{{end}}{{if .LinkURL}}
{{.LinkText}}: {{.LinkURL}}
{{end}}
VetCare`

const htmlLayout = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2 style="color:#0ea5e9">{{.Subject}}</h2>
<p>{{.Greeting}}</p>
{{range .Lines}}<p>{{.}}</p>
{{end}}{{if .Details}}<table cellpadding="6" style="border-collapse:collapse">
{{range .Details}}<tr><td style="color:#6b7280">{{.Label}}</td><td><strong>{{.Value}}</strong></td></tr>
{{end}}</table>{{end}}
{{if .LinkURL}}<p><a href="{{.LinkURL}}">{{.LinkText}}</a></p>{{end}}
<p style="color:#6b7280;font-size:12px">VetCare</p>
</body></html>`

var (
	textTmpl = texttemplate.Must(texttemplate.New("text").Parse(textLayout))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlLayout))
)

func render(v mailView) (text, html string, err error) {
	var tb, hb bytes.Buffer
	if err := textTmpl.Execute(&tb, v); err != nil {
		return "", "", fmt.Errorf("notify: render text: %w", err)
	}
	if err := htmlTmpl.Execute(&hb, v); err != nil {
		return "", "", fmt.Errorf("notify: render html: %w", err)
	}
	return tb.String(), hb.String(), nil
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Hello,"
	}
	return fmt.Sprintf("Hello %s,", name)
}

func displayType(consultationType string) string {
	switch strings.ToLower(consultationType) {
	case "video":
		return "Video consultation"
	case "in_person":
		return "In-person visit"
	case "":
		return ""
	default:
		return consultationType
	}
}

func timeRange(start, end string) string {
	start, end = trimSeconds(start), trimSeconds(end)
	if end == "" {
		return start
	}
	return start + " - " + end
}

// trimSeconds turns "09:30:00" into "09:30".
func trimSeconds(clock string) string {
	if len(clock) == len("15:04:05") && strings.Count(clock, ":") == 2 {
		return clock[:5]
	}
	return clock
}
