package emailsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkshop/slides/core"
	logsvc "github.com/aiworkshop/slides/services/logger"
)

func TestSendgridService(t *testing.T) {
	var (
		mu      sync.Mutex
		gotAuth string
		gotBody map[string]interface{}
		status  = http.StatusAccepted
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, endpoint, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	conf := testConfig()
	conf.SendgridApiKey = "SG.test"
	svc := NewSendgridService(conf, logsvc.NewNopLogger())
	svc.host = srv.URL

	msg := func() *core.EmailMessage {
		return &core.EmailMessage{
			To:      []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
			Subject: "Hello",
			BodyStr: "Hi Ada",
		}
	}
	require.NoError(t, svc.SendMessages(context.Background(), msg()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer SG.test", gotAuth)

	pers := gotBody["personalizations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "[AI Workshop] Hello", pers["subject"])
	assert.Equal(t, "ada@example.com", pers["to"].([]interface{})[0].(map[string]interface{})["email"])
	assert.Equal(t, "noreply@workshop.test", gotBody["from"].(map[string]interface{})["email"])
	content := gotBody["content"].([]interface{})
	require.Len(t, content, 1)
	assert.Equal(t, "Hi Ada", content[0].(map[string]interface{})["value"])

	status = http.StatusBadRequest
	mu.Unlock()
	err := svc.SendMessages(context.Background(), msg())
	mu.Lock()
	assert.EqualError(t, err, "sending email: sendgrid status 400")
}
