package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_surveyApi(t *testing.T) {
	resetSurveys(t)

	runHTTPTests(t, []httpTest{
		{
			name:     "empty list",
			method:   http.MethodGet,
			path:     "/v1/surveys",
			wantCode: http.StatusOK,
			wantData: []byte(`{"success": true, "message": "0 surveys", "surveys": []}`),
		},
		{
			name:     "empty object",
			method:   http.MethodPost,
			path:     "/v1/surveys",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success": false, "message": "survey data is required"}`),
		},
		{
			name:     "array",
			method:   http.MethodPost,
			path:     "/v1/surveys",
			body:     []byte(`[{"rating": 5}]`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success": false, "message": "survey data must be a JSON object"}`),
		},
		{
			name:     "malformed",
			method:   http.MethodPost,
			path:     "/v1/surveys",
			body:     []byte(`{"rating": `),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success": false, "message": "survey data must be a JSON object"}`),
		},
	})

	code, data := doJSON(t, http.MethodPost, "/v1/surveys", []byte(`{
		"rating": 5,
		"comment": "Loved the agents chapter",
		"tags": ["agents", "prompting"],
		"id": "client-chosen"
	}`))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "Survey submitted successfully", data["message"])
	id := data["id"].(string)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	code, data = doJSON(t, http.MethodGet, "/v1/surveys", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1 surveys", data["message"])
	subs := data["surveys"].([]interface{})
	require.Len(t, subs, 1)
	sub := subs[0].(map[string]interface{})
	assert.Equal(t, id, sub["id"])
	assert.EqualValues(t, 5, sub["rating"])
	assert.Equal(t, "Loved the agents chapter", sub["comment"])
	assert.Equal(t, []interface{}{"agents", "prompting"}, sub["tags"])

	submittedAt, err := time.Parse(time.RFC3339, sub["submittedAt"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), submittedAt, time.Minute)
}
