package provider

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const altBoundary = "bulkmail-alt-0000"

// formatFromHeader renders "Name <addr>" when a display name is present.
func formatFromHeader(from, fromName string) string {
	if strings.TrimSpace(fromName) == "" {
		return from
	}
	return fmt.Sprintf("%s <%s>", fromName, from)
}

// buildMIMEMessage assembles an RFC 822 message. With a text part it
// produces a multipart/alternative body (plain first, HTML last);
// otherwise a single text/html body. messageID may be empty.
func buildMIMEMessage(from, fromName, to, subject, html, text, messageID string) []byte {
	var b strings.Builder

	writeHeader := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}

	writeHeader("From", formatFromHeader(from, fromName))
	writeHeader("To", to)
	writeHeader("Subject", subject)
	if messageID != "" {
		writeHeader("Message-ID", messageID)
	}
	writeHeader("MIME-Version", "1.0")

	if text == "" {
		writeHeader("Content-Type", `text/html; charset=UTF-8`)
		b.WriteString("\r\n")
		b.WriteString(html)
		b.WriteString("\r\n")
		return []byte(b.String())
	}

	writeHeader("Content-Type", fmt.Sprintf(`multipart/alternative; boundary=%q`, altBoundary))
	b.WriteString("\r\n")

	b.WriteString("--" + altBoundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	b.WriteString(text)
	b.WriteString("\r\n")

	b.WriteString("--" + altBoundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")

	b.WriteString("--" + altBoundary + "--\r\n")

	return []byte(b.String())
}

// encodeBase64URL encodes raw bytes the way the Gmail API expects:
// URL-safe alphabet without padding.
func encodeBase64URL(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}
