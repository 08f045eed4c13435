package emailsvc

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkshop/slides/core"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "AI Workshop",
		DefaultFromEmail: "noreply@workshop.test",
		DefaultFromName:  "AI Workshop",
		FrontendBaseURL:  "http://localhost:5173",
	}
}

func readParts(t *testing.T, r io.Reader, boundary string) map[string]string {
	t.Helper()
	parts := make(map[string]string)
	mr := multipart.NewReader(r, boundary)
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return parts
		}
		require.NoError(t, err)
		data, err := io.ReadAll(p)
		require.NoError(t, err)
		parts[p.Header.Get("Content-Type")] = string(data)
	}
}

func TestBuildMIME(t *testing.T) {
	from := mail.Address{Name: "AI Workshop", Address: "noreply@workshop.test"}
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Ada", Address: "ada@example.com"}, {Address: "grace@example.com"}},
		Cc:          []mail.Address{{Address: "cc@example.com"}},
		ReplyTo:     &mail.Address{Address: "support@workshop.test"},
		TextContent: "Hello Ada",
		HTMLContent: "<p>Hello Ada</p>",
	}

	raw, err := buildMIME(from, "Félicitations", msg)
	require.NoError(t, err)

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, `"AI Workshop" <noreply@workshop.test>`, m.Header.Get("From"))
	assert.Equal(t, `"Ada" <ada@example.com>, <grace@example.com>`, m.Header.Get("To"))
	assert.Equal(t, "<cc@example.com>", m.Header.Get("Cc"))
	assert.Equal(t, "<support@workshop.test>", m.Header.Get("Reply-To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(m.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Félicitations", subject)

	mt, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mt)
	parts := readParts(t, m.Body, params["boundary"])
	assert.Equal(t, "Hello Ada\r\n", parts["text/plain; charset=utf-8"])
	assert.Equal(t, "<p>Hello Ada</p>\r\n", parts["text/html; charset=utf-8"])
}

func TestBuildMIME_attachments(t *testing.T) {
	msg := core.EmailMessage{
		To:          []mail.Address{{Address: "ada@example.com"}},
		TextContent: "see attached",
	}
	require.NoError(t, msg.Attach(strings.NewReader("hello"), "hello.txt", "text/plain"))

	raw, err := buildMIME(mail.Address{Address: "noreply@workshop.test"}, "files", msg)
	require.NoError(t, err)

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	mt, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mt)

	mr := multipart.NewReader(m.Body, params["boundary"])
	alt, err := mr.NextPart()
	require.NoError(t, err)
	altType, altParams, err := mime.ParseMediaType(alt.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", altType)
	assert.Equal(t, map[string]string{"text/plain; charset=utf-8": "see attached\r\n"}, readParts(t, alt, altParams["boundary"]))

	at, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", at.FileName())
	assert.Equal(t, "base64", at.Header.Get("Content-Transfer-Encoding"))
	data, err := io.ReadAll(at)
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=\r\n", string(data))

	_, err = mr.NextPart()
	assert.Equal(t, io.EOF, err)
}

func TestSendAll(t *testing.T) {
	var calls int32
	send := func(_ context.Context, msg core.EmailMessage) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}

	// the second message has no content and the third no recipient
	msgs := []*core.EmailMessage{
		{To: []mail.Address{{Address: "a@example.com"}}, BodyStr: "hi"},
		{To: []mail.Address{{Address: "b@example.com"}}},
		{BodyStr: "nobody to send to"},
		{To: []mail.Address{{Address: "c@example.com"}}, BodyStr: "hello"},
	}
	require.NoError(t, sendAll(context.Background(), contextData(testConfig()), msgs, send))
	assert.Equal(t, int32(2), calls)
	assert.Equal(t, "hi", msgs[0].TextContent)

	err := sendAll(context.Background(), core.ContextData{}, []*core.EmailMessage{
		{To: []mail.Address{{Address: "a@example.com"}}, TemplateName: "does_not_exist"},
	}, send)
	assert.EqualError(t, err, `rendering email: email template "does_not_exist" not found`)
}

func TestConsoleService(t *testing.T) {
	var out bytes.Buffer
	svc := newConsoleService(testConfig(), &out)

	err := svc.SendMessages(context.Background(), &core.EmailMessage{
		To:      []mail.Address{{Address: "ada@example.com"}},
		Subject: "Hello",
		BodyStr: "Hi Ada",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Subject: [AI Workshop] Hello\r\n")
	assert.Contains(t, out.String(), "To: <ada@example.com>\r\n")
	assert.Contains(t, out.String(), "Hi Ada")
}
