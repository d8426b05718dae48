package models

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"
)

// MessageHeaders holds the message headers the assistant flows care about.
type MessageHeaders struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
}

// ParsedMessage is a normalized email message. Snippet is a short preview
// when the upstream provider supplies one; TextPlain and TextHTML carry the
// full body parts.
type ParsedMessage struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"threadId"`
	Headers   MessageHeaders `json:"headers"`
	Snippet   string         `json:"snippet"`
	TextPlain string         `json:"textPlain"`
	TextHTML  string         `json:"textHtml"`
}

// ParseMessage builds a ParsedMessage from a raw RFC 822 message.
func ParseMessage(raw []byte) (*ParsedMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse raw message: %w", err)
	}

	msg := &ParsedMessage{
		ID: strings.Trim(env.GetHeader("Message-ID"), "<>"),
		Headers: MessageHeaders{
			From:    env.GetHeader("From"),
			Subject: env.GetHeader("Subject"),
		},
		TextPlain: env.Text,
		TextHTML:  env.HTML,
	}

	// Prefer the address from a parsed From list over the raw header when
	// enmime can decode it.
	if fromList, err := env.AddressList("From"); err == nil && len(fromList) > 0 {
		msg.Headers.From = fromList[0].String()
	}

	return msg, nil
}
