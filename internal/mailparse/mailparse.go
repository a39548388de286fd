// Package mailparse turns pasted email content into the text the email
// heuristics read. Raw RFC 822 messages are decoded; anything else passes
// through untouched.
package mailparse

import (
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"
)

// headerLine matches an RFC 822 header field such as "Subject: hi".
var headerLine = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*:[ \t]?`)

// knownHeaders are fields at least one of which a real message carries.
var knownHeaders = []string{"from:", "to:", "subject:", "date:", "received:", "message-id:", "mime-version:", "return-path:", "content-type:"}

// LooksRaw reports whether text starts with a header block followed by a
// blank line.
func LooksRaw(text string) bool {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	head, _, ok := strings.Cut(text, "\n\n")
	if !ok {
		return false
	}

	known := false
	for _, line := range strings.Split(head, "\n") {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			continue // folded continuation
		}
		if !headerLine.MatchString(line) {
			return false
		}
		lower := strings.ToLower(line)
		for _, h := range knownHeaders {
			if strings.HasPrefix(lower, h) {
				known = true
				break
			}
		}
	}
	return known
}

// Message is the decoded part of a raw email that matters for scanning.
type Message struct {
	Subject string
	From    string
	Text    string
}

// Parse decodes a raw message. The body is the text/plain part, or the
// HTML part rendered to text when there is no plain part.
func Parse(raw string) (*Message, error) {
	env, err := enmime.ReadEnvelope(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		Text:    env.Text,
	}
	if strings.TrimSpace(msg.Text) == "" && env.HTML != "" {
		text, err := html2text.FromString(env.HTML)
		if err != nil {
			return nil, err
		}
		msg.Text = text
	}
	return msg, nil
}

// Body returns the text to analyze for content. Raw messages are reduced to
// their subject and body; everything else, including messages that fail to
// parse, is returned unchanged.
func Body(content string) string {
	if !LooksRaw(content) {
		return content
	}
	msg, err := Parse(content)
	if err != nil {
		zap.L().Debug("mailparse: falling back to raw content", zap.Error(err))
		return content
	}
	if strings.TrimSpace(msg.Text) == "" {
		return content
	}
	if msg.Subject == "" {
		return msg.Text
	}
	return msg.Subject + "\n\n" + msg.Text
}
