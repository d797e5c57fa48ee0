package transform

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/imagegen"
)

func newHandlerApp(svc *Service, userID uuid.UUID) *fiber.App {
	h := NewHandler(svc)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID.String())
		return c.Next()
	})
	app.Post("/transform", h.Transform)
	app.Post("/api/transform/jobs", h.SubmitJob)
	app.Get("/api/transform/jobs", h.ListJobs)
	app.Get("/api/transform/jobs/:id", h.GetJob)
	app.Delete("/api/transform/jobs/:id", h.CancelJob)
	return app
}

func multipartBody(t *testing.T, fields map[string]string, image []byte, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="room"`)
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func post(t *testing.T, app *fiber.App, path string, fields map[string]string, image []byte, contentType string) (int, string, []byte) {
	t.Helper()
	body, ct := multipartBody(t, fields, image, contentType)
	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get("Content-Type"), raw
}

func TestTransformEndpoint(t *testing.T) {
	ledger := newFakeCredits()
	userID := uuid.New()
	ledger.balances[userID] = 1
	provider := &stubProvider{result: &imagegen.Result{Image: jpegBytes, ContentType: "image/jpeg"}}
	app := newHandlerApp(NewService(provider, ledger, newMemoryJobs(), newStore(t)), userID)
	fields := map[string]string{"roomType": "living-room", "furnitureStyle": "modern"}

	status, ct, raw := post(t, app, "/transform", fields, pngBytes, "image/png")
	require.Equal(t, 200, status)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, jpegBytes, raw)

	status, _, raw = post(t, app, "/transform", fields, pngBytes, "image/png")
	assert.Equal(t, 400, status)
	assert.JSONEq(t, `{"error":"Insufficient credits"}`, string(raw))
}

func TestTransformEndpointValidation(t *testing.T) {
	ledger := newFakeCredits()
	userID := uuid.New()
	ledger.balances[userID] = 5
	app := newHandlerApp(NewService(&stubProvider{}, ledger, newMemoryJobs(), newStore(t)), userID)

	cases := []struct {
		name   string
		fields map[string]string
		image  []byte
		ct     string
		want   string
	}{
		{"no image", map[string]string{"roomType": "bedroom", "furnitureStyle": "modern"}, nil, "", "No image uploaded"},
		{"no style", map[string]string{"roomType": "bedroom"}, pngBytes, "image/png", "Room type and style required"},
		{"gif", map[string]string{"roomType": "bedroom", "furnitureStyle": "modern"}, []byte("GIF89a......"), "image/gif", "Only JPG/PNG files allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _, raw := post(t, app, "/transform", tc.fields, tc.image, tc.ct)
			assert.Equal(t, 400, status)
			assert.JSONEq(t, `{"error":"`+tc.want+`"}`, string(raw))
		})
	}
	assert.Equal(t, 5, ledger.balance(userID))
}

func TestTransformEndpointFailure(t *testing.T) {
	ledger := newFakeCredits()
	userID := uuid.New()
	ledger.balances[userID] = 1
	app := newHandlerApp(NewService(&stubProvider{err: imagegen.ErrNoPollingURL}, ledger, newMemoryJobs(), newStore(t)), userID)

	status, _, raw := post(t, app, "/transform", map[string]string{"roomType": "bedroom", "furnitureStyle": "modern"}, pngBytes, "image/png")
	assert.Equal(t, 500, status)
	assert.JSONEq(t, `{"error":"Transform failed","details":"No polling URL received"}`, string(raw))
	assert.Equal(t, 1, ledger.balance(userID))
}

func TestJobEndpoints(t *testing.T) {
	ledger := newFakeCredits()
	userID := uuid.New()
	ledger.balances[userID] = 1
	app := newHandlerApp(NewService(&stubProvider{}, ledger, newMemoryJobs(), newStore(t)), userID)

	status, _, raw := post(t, app, "/api/transform/jobs", map[string]string{"roomType": "bedroom", "furnitureStyle": "coastal"}, jpegBytes, "image/jpeg")
	require.Equal(t, 202, status)
	var created struct {
		JobID  uuid.UUID `json:"jobId"`
		Status string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "pending", created.Status)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/transform/jobs/"+created.JobID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/transform/jobs/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/transform/jobs/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestJobCancelAndListEndpoints(t *testing.T) {
	ledger := newFakeCredits()
	userID := uuid.New()
	ledger.balances[userID] = 1
	app := newHandlerApp(NewService(&stubProvider{}, ledger, newMemoryJobs(), newStore(t)), userID)

	status, _, raw := post(t, app, "/api/transform/jobs", map[string]string{"roomType": "office", "furnitureStyle": "industrial"}, pngBytes, "image/png")
	require.Equal(t, 202, status)
	var created struct {
		JobID uuid.UUID `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, 0, ledger.balance(userID))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/transform/jobs", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var listed struct {
		Success bool `json:"success"`
		Jobs    []struct {
			JobID  uuid.UUID `json:"jobId"`
			Status string    `json:"status"`
		} `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	assert.True(t, listed.Success)
	require.Len(t, listed.Jobs, 1)
	assert.Equal(t, created.JobID, listed.Jobs[0].JobID)
	assert.Equal(t, "pending", listed.Jobs[0].Status)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/transform/jobs/"+created.JobID.String(), nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	raw, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"jobId":"`+created.JobID.String()+`","status":"cancelled"}`, string(raw))
	assert.Equal(t, 1, ledger.balance(userID))

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/transform/jobs/"+created.JobID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)
	assert.Equal(t, 1, ledger.balance(userID))

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/transform/jobs/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/transform/jobs/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
