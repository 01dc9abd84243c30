package gmailclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage("dispatch@example.com", "jane@example.com", "Your voting link", "Hi Jane\nhttps://vote.example.com")

	assert.True(t, strings.HasPrefix(msg, "From: dispatch@example.com\r\nTo: jane@example.com\r\n"))
	assert.Contains(t, msg, "Subject: Your voting link\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nHi Jane\r\nhttps://vote.example.com"))
}

func TestBuildMessage_NoSenderAndEncodedSubject(t *testing.T) {
	msg := BuildMessage("", "jose@example.com", "Votación", "body")

	assert.True(t, strings.HasPrefix(msg, "To: jose@example.com\r\n"))
	assert.NotContains(t, msg, "From:")
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
}
