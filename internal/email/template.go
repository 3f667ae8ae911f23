package email

import (
	"bytes"
	"html/template"
	"strings"
)

var reminderTemplate = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Empty Jar Reminder</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #faf9f7; margin: 0; padding: 40px 20px;">
  <div style="max-width: 480px; margin: 0 auto; background: white; border-radius: 16px; padding: 40px;">
    <div style="text-align: center; margin-bottom: 32px;">
      <div style="font-size: 48px; margin-bottom: 8px;">🫙</div>
      <h1 style="color: #2d3748; font-size: 24px; font-weight: 600; margin: 0;">Empty Jar</h1>
    </div>
    <p style="color: #4a5568; font-size: 18px; line-height: 1.6; margin-bottom: 8px;">
      {{if .Name}}Hi {{.Name}}{{else}}Hi there{{end}} 👋
    </p>
    <p style="color: #4a5568; font-size: 16px; line-height: 1.6; margin-bottom: 32px;">
      Take 60 seconds and add this week's note. What made you smile? What did you learn? Capture it before it slips away.
    </p>
    <div style="text-align: center; margin-bottom: 32px;">
      <a href="{{.Link}}" style="display: inline-block; background: #667eea; color: white; text-decoration: none; padding: 16px 32px; border-radius: 12px; font-weight: 600;">
        Add this week's note →
      </a>
    </div>
    <hr style="border: none; border-top: 1px solid #e2e8f0; margin: 32px 0;">
    <p style="color: #a0aec0; font-size: 13px; text-align: center; margin: 0;">
      You're receiving this because weekly reminders are on.<br>
      <a href="{{.Link}}" style="color: #667eea;">Turn off in Settings</a>
    </p>
  </div>
</body>
</html>
`))

type reminderData struct {
	Name string
	Link string
}

// RenderReminder returns the HTML body for r. Names are escaped by
// html/template.
func RenderReminder(r Reminder) (string, error) {
	var buf bytes.Buffer
	data := reminderData{
		Name: r.Name,
		Link: strings.TrimRight(r.AppURL, "/") + "/app",
	}
	if err := reminderTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
