package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{"empty config", Config{}, false},
		{"missing host", Config{Port: 587, From: "jar@example.com"}, false},
		{"missing port", Config{Host: "smtp.example.com", From: "jar@example.com"}, false},
		{"missing from", Config{Host: "smtp.example.com", Port: 587}, false},
		{"fully configured", Config{Host: "smtp.example.com", Port: 587, From: "jar@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewService(tt.config).IsConfigured())
		})
	}
}

func TestSubjectForWeekRotates(t *testing.T) {
	seen := map[string]bool{}
	for week := 1; week <= len(Subjects); week++ {
		seen[SubjectForWeek(week)] = true
	}
	assert.Len(t, seen, len(Subjects))
	assert.Equal(t, SubjectForWeek(1), SubjectForWeek(1+len(Subjects)))
}

func TestRenderReminderEscapesName(t *testing.T) {
	html, err := RenderReminder(Reminder{Name: "<b>Sam</b>", AppURL: "https://jar.example.com/"})
	require.NoError(t, err)
	assert.Contains(t, html, "Hi &lt;b&gt;Sam&lt;/b&gt;")
	assert.Contains(t, html, `href="https://jar.example.com/app"`)

	html, err = RenderReminder(Reminder{AppURL: "https://jar.example.com"})
	require.NoError(t, err)
	assert.Contains(t, html, "Hi there")
}

func TestSendReminder(t *testing.T) {
	svc := NewService(Config{Host: "smtp.example.com", Port: 2525, From: "jar@example.com", FromName: "Empty Jar"})

	var gotAddr string
	var gotTo []string
	var gotMsg string
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := svc.SendReminder(context.Background(), Reminder{
		To:      "sam@example.com",
		Subject: SubjectForWeek(6),
		AppURL:  "https://jar.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"sam@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "To: sam@example.com\r\n"))
	assert.Contains(t, gotMsg, "From: Empty Jar <jar@example.com>")
	assert.Contains(t, gotMsg, "Subject: "+SubjectForWeek(6))
}

func TestSendReminderNotConfigured(t *testing.T) {
	err := NewService(Config{}).SendReminder(context.Background(), Reminder{To: "sam@example.com"})
	assert.Error(t, err)
}
