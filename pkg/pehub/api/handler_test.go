package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/grid"
	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/realtime"
	"github.com/tendant/pehub/pkg/pehub/presets"
	memorystorage "github.com/tendant/pehub/pkg/pehub/storage/memory"
)

type apiEnv struct {
	router     http.Handler
	svc        pehub.Service
	hub        *realtime.Hub
	store      *memorystorage.Backend
	adminToken string
	userToken  string
	admin      pehub.Actor
	user       pehub.Actor
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()
	tt := presets.NewTesting(t)
	env := &apiEnv{
		svc:   tt.Service,
		hub:   tt.Hub,
		store: tt.Store,
		admin: tt.Admin,
		user:  tt.User,
	}

	var err error
	ta := NewTokenAuth("test-secret")
	env.adminToken, err = IssueToken(ta, env.admin.UserID, env.admin.Email)
	require.NoError(t, err)
	env.userToken, err = IssueToken(ta, env.user.UserID, env.user.Email)
	require.NoError(t, err)

	h := NewHandler(tt.Service, WithHub(tt.Hub), WithStore(tt.Store), WithTokenAuth(ta), WithHeartbeat(50*time.Millisecond))
	env.router = h.Routes()
	return env
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func uploadBody(title string) map[string]string {
	return map[string]string{
		"title":       title,
		"url":         "https://video.example/" + title + ".mp4",
		"type":        "videos",
		"stage_id":    "primary",
		"category_id": "team-sports",
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupAPI(t)

	rec := env.do(t, http.MethodGet, "/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "unauthorized", resp.Error.Code)
	assert.Equal(t, i18n.T(i18n.Arabic, i18n.SignInRequired), resp.Error.Notice.Description)
	assert.True(t, resp.Error.Notice.Destructive)

	rec = env.do(t, http.MethodGet, "/notifications", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLanguageNegotiation(t *testing.T) {
	env := setupAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, i18n.T(i18n.English, i18n.SignInRequired), resp.Error.Notice.Description)
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))

	rec = env.do(t, http.MethodGet, "/notifications?lang=ar", "", nil)
	assert.Equal(t, "ar", rec.Header().Get("Content-Language"))
}

func TestUploadAndBrowse(t *testing.T) {
	env := setupAPI(t)

	rec := env.do(t, http.MethodPost, "/content", env.adminToken, uploadBody("match"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Notice i18n.Notice        `json:"notice"`
		Data   pehub.ContentItem `json:"data"`
	}
	decodeBody(t, rec, &created)
	assert.Equal(t, i18n.T(i18n.Arabic, i18n.UploadSuccess), created.Notice.Description)
	assert.Equal(t, "video", created.Data.Type)

	rec = env.do(t, http.MethodGet, "/content?stage=primary&subcategory=team-sports&type=videos", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resources []pehub.Resource
	decodeBody(t, rec, &resources)
	require.Len(t, resources, 1)
	assert.Equal(t, created.Data.ID, resources[0].ID)

	rec = env.do(t, http.MethodGet, "/content?stage=primary&subcategory=team-sports&type=images", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/content?stage=primary", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/content/"+created.Data.ID.String()+"/preview", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var preview grid.Preview
	decodeBody(t, rec, &preview)
	assert.Equal(t, grid.PreviewVideo, preview.Kind)
}

func TestUploadErrors(t *testing.T) {
	env := setupAPI(t)

	rec := env.do(t, http.MethodPost, "/content", env.userToken, uploadBody("x"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := uploadBody("")
	rec = env.do(t, http.MethodPost, "/content", env.adminToken, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "validation_error", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Fields)

	req := httptest.NewRequest(http.MethodPost, "/content", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMultipartUploadServesFile(t *testing.T) {
	env := setupAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{"title": "خطة الدرس", "type": "files", "stage_id": "primary", "category_id": "team-sports"} {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", "plan.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/content", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data pehub.ContentItem `json:"data"`
	}
	decodeBody(t, rec, &created)
	key, ok := env.store.KeyFromURL(created.Data.URL)
	require.True(t, ok, created.Data.URL)

	rec = env.do(t, http.MethodGet, "/files/"+key+"?name=plan.pdf", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "plan.pdf")

	rec = env.do(t, http.MethodGet, "/content/"+created.Data.ID.String()+"/download", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dl grid.Download
	decodeBody(t, rec, &dl)
	assert.Equal(t, created.Data.URL, dl.URL)
	assert.True(t, strings.HasSuffix(dl.FileName, ".pdf"), dl.FileName)

	rec = env.do(t, http.MethodGet, "/files/primary/missing.pdf", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteContent(t *testing.T) {
	env := setupAPI(t)
	rec := env.do(t, http.MethodPost, "/content", env.adminToken, uploadBody("gone"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data pehub.ContentItem `json:"data"`
	}
	decodeBody(t, rec, &created)
	path := "/content/" + created.Data.ID.String()

	rec = env.do(t, http.MethodDelete, path, env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, path, env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/content/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/cleanups", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"keys": []}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/admin/cleanups", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestModerationFlow(t *testing.T) {
	env := setupAPI(t)

	rec := env.do(t, http.MethodPost, "/requests", env.userToken, map[string]string{
		"title": "تمرين", "url": "https://images.example/a.png", "type": "image",
		"stage_id": "primary", "category_id": "active-play",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var submitted struct {
		Data pehub.ContentRequest `json:"data"`
	}
	decodeBody(t, rec, &submitted)
	id := submitted.Data.ID.String()

	rec = env.do(t, http.MethodGet, "/requests?status=pending", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/requests?status=bogus", env.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/requests?status=pending", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []pehub.ContentRequestView
	decodeBody(t, rec, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "أحمد", views[0].SubmitterName)

	rec = env.do(t, http.MethodPost, "/requests/"+id+"/approve", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved struct {
		Data ModerationResult `json:"data"`
	}
	decodeBody(t, rec, &approved)
	require.NotNil(t, approved.Data.Content)
	assert.Equal(t, pehub.ApprovedContentID(submitted.Data.ID), approved.Data.Content.ID)
	require.Len(t, approved.Data.Requests, 1)
	assert.Equal(t, pehub.RequestStatusApproved, approved.Data.Requests[0].Status)

	rec = env.do(t, http.MethodPost, "/requests/"+id+"/approve", env.adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/requests/"+id+"/reject", env.adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/requests/mine", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []pehub.ContentRequest
	decodeBody(t, rec, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, pehub.RequestStatusApproved, mine[0].Status)

	rec = env.do(t, http.MethodGet, "/notifications/unread", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread": 1}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/notifications/read", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated": 1}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/admin/reconcile", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"repaired": 0}`, rec.Body.String())
}

func TestRejectReturnsRefreshedList(t *testing.T) {
	env := setupAPI(t)

	var ids []string
	for _, name := range []string{"a", "b"} {
		rec := env.do(t, http.MethodPost, "/requests", env.userToken, map[string]string{
			"title": name, "url": "https://images.example/" + name + ".png", "type": "image",
			"stage_id": "primary", "category_id": "active-play",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var submitted struct {
			Data pehub.ContentRequest `json:"data"`
		}
		decodeBody(t, rec, &submitted)
		ids = append(ids, submitted.Data.ID.String())
	}

	rec := env.do(t, http.MethodPost, "/requests/"+ids[0]+"/reject?status=pending", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rejected struct {
		Data ModerationResult `json:"data"`
	}
	decodeBody(t, rec, &rejected)
	assert.Nil(t, rejected.Data.Content)
	require.Len(t, rejected.Data.Requests, 1)
	assert.Equal(t, ids[1], rejected.Data.Requests[0].ID.String())

	rec = env.do(t, http.MethodPost, "/requests/"+ids[1]+"/reject", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &rejected)
	require.Len(t, rejected.Data.Requests, 2)
	for _, v := range rejected.Data.Requests {
		assert.Equal(t, pehub.RequestStatusRejected, v.Status)
	}
}

func TestContactAndMessages(t *testing.T) {
	env := setupAPI(t)

	rec := env.do(t, http.MethodPost, "/contact", "", map[string]string{"name": "x", "email": "bad", "message": "رسالة طويلة بما يكفي"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, i18n.T(i18n.Arabic, i18n.EmailInvalid), resp.Error.Notice.Description)

	rec = env.do(t, http.MethodPost, "/contact", "", map[string]string{"name": "x", "email": "x@school.example", "message": "رسالة طويلة بما يكفي"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sent struct {
		Data pehub.Message `json:"data"`
	}
	decodeBody(t, rec, &sent)

	rec = env.do(t, http.MethodGet, "/messages", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []pehub.Message
	decodeBody(t, rec, &msgs)
	require.Len(t, msgs, 1)

	rec = env.do(t, http.MethodPost, "/messages/"+sent.Data.ID.String()+"/read", env.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChatAndEvents(t *testing.T) {
	env := setupAPI(t)

	rec := env.do(t, http.MethodPost, "/chats", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chat pehub.Chat
	decodeBody(t, rec, &chat)

	rec = env.do(t, http.MethodPost, "/chats/"+chat.ID.String()+"/messages", env.adminToken, map[string]string{"message": "أهلاً"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/chats/"+chat.ID.String()+"/messages", env.userToken, map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/chats/"+chat.ID.String()+"/messages", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []pehub.ChatMessage
	decodeBody(t, rec, &msgs)
	assert.Len(t, msgs, 1)

	rec = env.do(t, http.MethodPost, "/events", env.userToken, map[string]interface{}{"title": "x", "type": "y", "date": time.Now()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/events", env.adminToken, map[string]interface{}{"title": "يوم رياضي", "type": "activity", "date": time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []pehub.Event
	decodeBody(t, rec, &events)
	assert.Len(t, events, 1)
}

func TestProfileAndAdmin(t *testing.T) {
	env := setupAPI(t)
	ta := NewTokenAuth("test-secret")
	newcomer := uuid.New()
	token, err := IssueToken(ta, newcomer, "coach@school.example")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me ProfileResponse
	decodeBody(t, rec, &me)
	assert.Equal(t, newcomer, me.ID)
	assert.False(t, me.IsAdmin)

	rec = env.do(t, http.MethodPost, "/admin/admins", env.adminToken, map[string]string{"email": "coach@school.example"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/admin/admins", env.adminToken, map[string]string{"email": "new@school.example"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/profiles?role=admin", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var admins []pehub.Profile
	decodeBody(t, rec, &admins)
	assert.Len(t, admins, 3)

	rec = env.do(t, http.MethodGet, "/admin/profiles?role=owner", env.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/admin/admins/"+newcomer.String(), env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/stats", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats pehub.Stats
	decodeBody(t, rec, &stats)
	assert.Equal(t, int64(4), stats.Profiles)

	rec = env.do(t, http.MethodDelete, "/me", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTaxonomy(t *testing.T) {
	env := setupAPI(t)

	rec := env.do(t, http.MethodGet, "/taxonomy/primary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/taxonomy/university", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&pehub.ValidationError{}, http.StatusBadRequest},
		{pehub.ErrInvalidSelection, http.StatusBadRequest},
		{pehub.ErrUnauthenticated, http.StatusUnauthorized},
		{pehub.ErrForbidden, http.StatusForbidden},
		{&pehub.ContentError{Op: "get", Err: pehub.ErrContentNotFound}, http.StatusNotFound},
		{pehub.ErrRequestNotPending, http.StatusConflict},
		{&pehub.ConstraintError{Kind: pehub.ConstraintDuplicate}, http.StatusConflict},
		{&pehub.ConstraintError{Kind: pehub.ConstraintPermissionDenied}, http.StatusForbidden},
		{&pehub.ConstraintError{Kind: pehub.ConstraintNotNull}, http.StatusBadRequest},
		{pehub.ErrNoAdmin, http.StatusServiceUnavailable},
		{&pehub.TransientError{Op: "x", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := statusFor(tt.err)
		assert.Equal(t, tt.want, got, "%v", tt.err)
	}
}
