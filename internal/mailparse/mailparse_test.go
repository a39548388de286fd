package mailparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "From: PayPal Security <security@paypa1-alerts.xyz>\r\n" +
	"To: victim@example.com\r\n" +
	"Subject: Urgent: account suspended\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Dear Customer,\r\n" +
	"Verify your account at http://paypa1-secure.xyz/login immediately.\r\n"

const htmlMessage = "From: billing@example.net\r\n" +
	"Subject: Invoice\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	`<html><body><p>Your invoice is ready.</p><a href="http://bit.ly/abc123">click here</a></body></html>` + "\r\n"

func TestLooksRaw(t *testing.T) {
	assert.True(t, LooksRaw(plainMessage))
	assert.True(t, LooksRaw(htmlMessage))
	assert.False(t, LooksRaw("Dear Customer, your account has been suspended. Verify now."))
	assert.False(t, LooksRaw("Note: this is not a header block\n\nbody"), "no known header")
	assert.False(t, LooksRaw("Subject: hi\nthis line is prose\n\nbody"))
}

func TestParse_Plain(t *testing.T) {
	msg, err := Parse(plainMessage)
	require.NoError(t, err)
	assert.Equal(t, "Urgent: account suspended", msg.Subject)
	assert.Contains(t, msg.From, "paypa1-alerts.xyz")
	assert.Contains(t, msg.Text, "http://paypa1-secure.xyz/login")
}

func TestParse_HTMLKeepsLinks(t *testing.T) {
	msg, err := Parse(htmlMessage)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "Your invoice is ready.")
	assert.Contains(t, msg.Text, "http://bit.ly/abc123")
}

func TestBody(t *testing.T) {
	got := Body(plainMessage)
	assert.Contains(t, got, "Urgent: account suspended")
	assert.Contains(t, got, "Dear Customer,")
	assert.NotContains(t, got, "MIME-Version")

	pasted := "Dear Customer, verify at http://example.com"
	assert.Equal(t, pasted, Body(pasted))
}
