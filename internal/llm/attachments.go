package llm

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

const defaultAttachmentName = "file"

// IsImage reports whether the attachment can be sent as an image part.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.mimeType(), "image/")
}

// Bytes decodes the base64 payload.
func (a Attachment) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s: %w", a.displayName(), err)
	}
	return b, nil
}

// DataURI renders the attachment as a data URI.
func (a Attachment) DataURI() string {
	return "data:" + a.mimeType() + ";base64," + a.Data
}

func (a Attachment) mimeType() string {
	if a.MIMEType == "" {
		return "application/octet-stream"
	}
	return a.MIMEType
}

func (a Attachment) displayName() string {
	if a.Name == "" {
		return defaultAttachmentName
	}
	return a.Name
}

// InlineText appends the textual content of every non-image attachment to
// prompt. Text and JSON files are decoded, PDF text is extracted, anything
// else is noted by name so the model knows it was sent.
func InlineText(prompt string, attachments []Attachment) string {
	var b strings.Builder
	b.WriteString(prompt)

	for _, a := range attachments {
		if a.IsImage() || a.Data == "" {
			continue
		}
		mime := a.mimeType()
		switch {
		case strings.HasPrefix(mime, "text/") || mime == "application/json":
			raw, err := a.Bytes()
			if err != nil {
				fmt.Fprintf(&b, "\n\n[Attached File: %s - Error decoding content]", a.displayName())
				continue
			}
			fmt.Fprintf(&b, "\n\n[Attached File: %s]\n%s", a.displayName(), raw)
		case mime == "application/pdf":
			text, err := pdfText(a)
			if err != nil {
				fmt.Fprintf(&b, "\n\n[Attached PDF: %s - Error reading content]", a.displayName())
				continue
			}
			fmt.Fprintf(&b, "\n\n[Attached PDF: %s]\n%s", a.displayName(), text)
		default:
			fmt.Fprintf(&b, "\n\n[Attached File: %s (%s) - Content not extracted]", a.displayName(), mime)
		}
	}
	return b.String()
}

func pdfText(a Attachment) (string, error) {
	raw, err := a.Bytes()
	if err != nil {
		return "", err
	}
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", a.displayName(), err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf %s: %w", a.displayName(), err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf %s: %w", a.displayName(), err)
	}
	return string(text), nil
}
