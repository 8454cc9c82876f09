package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetcare/internal/types"
)

func newTestSendGrid(serverURL string) *SendGridClient {
	base := newTestBase(RetryPolicy{MaxRetries: 0, MinWait: time.Millisecond, MaxWait: time.Millisecond})
	return NewSendGridClient(base, SendGridClientConfig{
		APIKey:  "SG.test_key",
		BaseURL: serverURL,
	})
}

var testSendInput = SendInput{
	To:          "owner@example.com",
	From:        SenderIdentity{Address: "reminders@fleetcare.app", Name: "Fleetcare"},
	Subject:     "Urgent: Oil change overdue for 2019 Toyota Corolla",
	BodyHTML:    "<p>Oil change</p>",
	ReferenceID: "ledger-1",
}

func TestSendGridSend_Success(t *testing.T) {
	var payload sendGridMailPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.test_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("X-Message-Id", "sg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	id, err := newTestSendGrid(server.URL).Send(context.Background(), testSendInput)
	require.NoError(t, err)
	assert.Equal(t, "sg-123", id)

	require.Len(t, payload.Personalizations, 1)
	assert.Equal(t, "owner@example.com", payload.Personalizations[0].To[0].Email)
	assert.Equal(t, "reminders@fleetcare.app", payload.From.Email)
	assert.Equal(t, testSendInput.Subject, payload.Subject)
	require.Len(t, payload.Content, 1)
	assert.Equal(t, "text/html", payload.Content[0].Type)
	assert.Equal(t, "<p>Oil change</p>", payload.Content[0].Value)
	assert.Equal(t, "ledger-1", payload.CustomArgs["reference_id"])
}

func TestSendGridSend_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   types.ErrorCode
	}{
		{"forbidden is blocked", http.StatusForbidden, `{"errors":[{"message":"suppressed"}]}`, types.ErrCodeEmailBlocked},
		{"bad request", http.StatusBadRequest, `{"errors":[{"message":"bad from","field":"from"}]}`, types.ErrCodeUpstreamEmailProvider},
		{"server error", http.StatusInternalServerError, `oops`, types.ErrCodeUpstreamUnavailable},
		{"rate limited", http.StatusTooManyRequests, ``, types.ErrCodeUpstreamRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestSendGrid(server.URL).Send(context.Background(), testSendInput)
			require.Error(t, err)
			assert.True(t, types.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSendGridClient_KeyIsRedacted(t *testing.T) {
	c := newTestSendGrid("http://localhost")
	assert.NotContains(t, c.apiKey.String(), "SG.")
}
