package emailsvc

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/aiworkshop/slides/core"
)

// sendAll renders every message and hands the deliverable ones to send, concurrently.
// It returns the first error encountered.
func sendAll(ctx context.Context, base core.ContextData, messages []*core.EmailMessage, send func(context.Context, core.EmailMessage) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, msg := range messages {
		msg := msg
		g.Go(func() error {
			if err := msg.Render(base); err != nil {
				return errors.Wrap(err, "rendering email")
			}
			if !(msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments())) {
				return nil
			}
			return send(ctx, *msg)
		})
	}
	return g.Wait()
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// buildMIME writes msg as a multipart MIME message.
func buildMIME(from mail.Address, subject string, msg core.EmailMessage) ([]byte, error) {
	var body bytes.Buffer

	// Write mail header
	_, _ = fmt.Fprintf(&body, "From: %s\r\n", from.String())
	_, _ = fmt.Fprint(&body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(&body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(&body, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	_, _ = fmt.Fprintf(&body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(&body, "Cc: %s\r\n", joinAddresses(msg.Cc))
	}
	if msg.ReplyTo != nil {
		_, _ = fmt.Fprintf(&body, "Reply-To: %s\r\n", msg.ReplyTo.String())
	}

	var alt bytes.Buffer
	altW := multipart.NewWriter(&alt)
	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return nil, errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)
	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return nil, errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err = altW.Close(); err != nil {
		return nil, errors.Wrap(err, "closing multipart/alternative")
	}

	if !msg.HasAttachments() {
		_, _ = fmt.Fprintf(&body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())
		body.Write(alt.Bytes())
		return body.Bytes(), nil
	}

	mixedW := multipart.NewWriter(&body)
	_, _ = fmt.Fprintf(&body, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mixedW.Boundary())
	w, err = mixedW.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + altW.Boundary()}})
	if err != nil {
		return nil, errors.Wrap(err, "creating multipart/alternative part")
	}
	_, _ = w.Write(alt.Bytes())
	for _, at := range msg.Attachments {
		w, err = mixedW.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {at.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": at.Filename})},
		})
		if err != nil {
			return nil, errors.Wrap(err, "creating "+at.ContentType+" part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", at.Content.String())
	}
	if err = mixedW.Close(); err != nil {
		return nil, errors.Wrap(err, "closing multipart/mixed")
	}
	return body.Bytes(), nil
}

func contextData(conf *core.Config) core.ContextData {
	return core.ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL}
}

func subjectPrefix(conf *core.Config) string {
	if conf.AppName == "" {
		return ""
	}
	return "[" + conf.AppName + "] "
}
