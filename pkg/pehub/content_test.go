package pehub_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/repo/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []pehub.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []pehub.Option{},
			expectError: true,
		},
		{
			name:        "with repository should succeed",
			options:     []pehub.Option{pehub.WithRepository(memory.New())},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := pehub.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestEndToEnd_UploadBrowseDelete(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	var changes []pehub.ContentChange
	unsubscribe := env.svc.OnContentChanged(func(c pehub.ContentChange) { changes = append(changes, c) })
	defer unsubscribe()

	item, err := env.svc.UploadContent(ctx, env.admin, pehub.UploadContentRequest{
		Title:      "فيديو تجريبي",
		URL:        "https://www.youtube.com/watch?v=abc",
		Type:       "video",
		StageID:    "primary",
		CategoryID: "team-sports",
	})
	require.NoError(t, err)
	assert.Equal(t, env.admin.UserID, item.CreatedBy)

	sel := pehub.Selection{StageID: "primary", SubcategoryID: "team-sports", ContentType: "videos"}
	resources, err := env.svc.BrowseContent(ctx, sel)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	r := resources[0]
	assert.Equal(t, item.ID, r.ID)
	assert.Equal(t, "فيديو تجريبي", r.Title)
	assert.Equal(t, "video", r.Type)
	assert.Equal(t, item.URL, r.ThumbnailURL)
	assert.Equal(t, item.URL, r.DownloadURL)

	// Other content types of the same subcategory stay empty.
	images, err := env.svc.BrowseContent(ctx, pehub.Selection{StageID: "primary", SubcategoryID: "team-sports", ContentType: "images"})
	require.NoError(t, err)
	assert.Empty(t, images)

	require.NoError(t, env.svc.DeleteContent(ctx, env.admin, item.ID))
	resources, err = env.svc.BrowseContent(ctx, sel)
	require.NoError(t, err)
	assert.Empty(t, resources)

	require.Len(t, changes, 2)
	assert.Equal(t, pehub.ContentAdded, changes[0].Kind)
	assert.Equal(t, pehub.ContentRemoved, changes[1].Kind)
	assert.True(t, changes[1].Matches(sel, "video"))

	assert.True(t, env.publisher.has(pehub.TableContent, pehub.EventInsert))
	assert.True(t, env.publisher.has(pehub.TableContent, pehub.EventDelete))
	assert.Empty(t, env.svc.PendingCleanups())
}

func TestBrowseContent_NewestFirst(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	for _, title := range []string{"أول", "ثاني", "ثالث"} {
		_, err := env.svc.UploadContent(ctx, env.admin, pehub.UploadContentRequest{
			Title: title, URL: "https://example.com/" + title, Type: "image", StageID: "primary", CategoryID: "active-play",
		})
		require.NoError(t, err)
	}

	got, err := env.svc.BrowseContent(ctx, pehub.Selection{StageID: "primary", SubcategoryID: "active-play", ContentType: "images"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ثالث", got[0].Title)
	assert.Equal(t, "أول", got[2].Title)
}

func TestBrowseContent_InvalidSelection(t *testing.T) {
	env := setupService(t)
	tests := []pehub.Selection{
		{SubcategoryID: "active-play", ContentType: "images"},
		{StageID: "primary", ContentType: "images"},
		{StageID: "primary", SubcategoryID: "active-play", ContentType: "image"},
		{StageID: "primary", SubcategoryID: "active-play", ContentType: "audio"},
	}
	for _, sel := range tests {
		got, err := env.svc.BrowseContent(context.Background(), sel)
		assert.ErrorIs(t, err, pehub.ErrInvalidSelection)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestBrowseContent_FailureNotifies(t *testing.T) {
	env := setupService(t)
	env.repo.listContentErr = errors.New("connection reset")

	got, err := env.svc.BrowseContent(context.Background(), pehub.Selection{StageID: "primary", SubcategoryID: "active-play", ContentType: "files"})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	var terr *pehub.TransientError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, i18n.FetchError, pehub.NoticeKey(err, i18n.GenericError))

	require.Len(t, *env.notices, 1)
	n := (*env.notices)[0]
	assert.True(t, n.Destructive)
	assert.Equal(t, "حدث خطأ أثناء تحميل المحتوى", n.Description)
}

func TestUploadContent_Authorization(t *testing.T) {
	env := setupService(t)
	req := pehub.UploadContentRequest{Title: "t", URL: "https://x.example/a", Type: "file", StageID: "primary", CategoryID: "active-play"}

	_, err := env.svc.UploadContent(context.Background(), pehub.Actor{}, req)
	assert.ErrorIs(t, err, pehub.ErrUnauthenticated)

	_, err = env.svc.UploadContent(context.Background(), env.user, req)
	assert.ErrorIs(t, err, pehub.ErrForbidden)
}

func TestUploadContent_Validation(t *testing.T) {
	env := setupService(t)
	tests := []struct {
		name  string
		req   pehub.UploadContentRequest
		field string
		key   i18n.Key
	}{
		{
			name:  "no source",
			req:   pehub.UploadContentRequest{Title: "t", Type: "image", StageID: "primary", CategoryID: "active-play"},
			field: "url",
			key:   i18n.UploadNeedsSource,
		},
		{
			name:  "markup only title",
			req:   pehub.UploadContentRequest{Title: "<script>x</script>", URL: "https://x.example", Type: "image", StageID: "primary", CategoryID: "active-play"},
			field: "title",
			key:   i18n.InvalidInput,
		},
		{
			name:  "unknown storage type",
			req:   pehub.UploadContentRequest{Title: "t", URL: "https://x.example", Type: "images", StageID: "primary", CategoryID: "active-play"},
			field: "type",
			key:   i18n.InvalidInput,
		},
		{
			name:  "category outside stage",
			req:   pehub.UploadContentRequest{Title: "t", URL: "https://x.example", Type: "image", StageID: "primary", CategoryID: "upper-grades"},
			field: "category_id",
			key:   i18n.InvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.UploadContent(context.Background(), env.admin, tt.req)
			var verr *pehub.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
			assert.Equal(t, tt.key, verr.First())
		})
	}
}

func TestUploadContent_FileGoesToTaxonomyPath(t *testing.T) {
	env := setupService(t)
	item, err := env.svc.UploadContent(context.Background(), env.admin, pehub.UploadContentRequest{
		Title:      "خطة",
		Type:       "file",
		StageID:    "primary",
		CategoryID: "body-management",
		File:       &pehub.File{Name: "Plan.PDF", ContentType: "application/pdf", Reader: strings.NewReader("%PDF-1.4")},
	})
	require.NoError(t, err)

	key, ok := env.store.KeyFromURL(item.URL)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(key, "primary/body-management/"), key)
	assert.True(t, strings.HasSuffix(key, ".pdf"), key)

	meta, err := env.store.GetObjectMeta(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", meta.ContentType)
}

func TestUploadContent_StoreFailureRemovesFile(t *testing.T) {
	env := setupService(t)
	env.repo.createContentErrs = []error{errors.New("insert failed")}

	_, err := env.svc.UploadContent(context.Background(), env.admin, pehub.UploadContentRequest{
		Title: "t", Type: "image", StageID: "primary", CategoryID: "active-play",
		File: &pehub.File{Name: "a.png", Reader: strings.NewReader("png")},
	})
	var cerr *pehub.ContentError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "create", cerr.Op)
	assert.Equal(t, 0, env.store.Len())
}

func TestDeleteContent(t *testing.T) {
	upload := func(t *testing.T, env *testEnv) *pehub.ContentItem {
		item, err := env.svc.UploadContent(context.Background(), env.admin, pehub.UploadContentRequest{
			Title: "صورة", Type: "image", StageID: "primary", CategoryID: "active-play",
			File: &pehub.File{Name: "a.jpg", Reader: strings.NewReader("jpg")},
		})
		require.NoError(t, err)
		return item
	}

	t.Run("removes record and file", func(t *testing.T) {
		env := setupService(t)
		item := upload(t, env)
		require.Equal(t, 1, env.store.Len())

		require.NoError(t, env.svc.DeleteContent(context.Background(), env.admin, item.ID))
		assert.Equal(t, 0, env.store.Len())
		_, err := env.svc.GetContent(context.Background(), item.ID)
		assert.ErrorIs(t, err, pehub.ErrContentNotFound)
	})

	t.Run("file failure is queued for cleanup", func(t *testing.T) {
		env := setupService(t)
		item := upload(t, env)
		key, _ := env.store.KeyFromURL(item.URL)

		env.store.setFailDeletes(true)
		require.NoError(t, env.svc.DeleteContent(context.Background(), env.admin, item.ID))
		assert.Equal(t, []string{key}, env.svc.PendingCleanups())

		n, err := env.svc.RetryCleanups(context.Background())
		assert.Error(t, err)
		assert.Equal(t, 0, n)

		env.store.setFailDeletes(false)
		n, err = env.svc.RetryCleanups(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Empty(t, env.svc.PendingCleanups())
		assert.Equal(t, 0, env.store.Len())
	})

	t.Run("external url leaves store alone", func(t *testing.T) {
		env := setupService(t)
		item, err := env.svc.UploadContent(context.Background(), env.admin, pehub.UploadContentRequest{
			Title: "رابط", URL: "https://vimeo.com/1", Type: "video", StageID: "primary", CategoryID: "active-play",
		})
		require.NoError(t, err)
		env.store.setFailDeletes(true)
		require.NoError(t, env.svc.DeleteContent(context.Background(), env.admin, item.ID))
		assert.Empty(t, env.svc.PendingCleanups())
	})

	t.Run("non admin is refused", func(t *testing.T) {
		env := setupService(t)
		item := upload(t, env)
		assert.ErrorIs(t, env.svc.DeleteContent(context.Background(), env.user, item.ID), pehub.ErrForbidden)
		_, err := env.svc.GetContent(context.Background(), item.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		env := setupService(t)
		err := env.svc.DeleteContent(context.Background(), env.admin, uuid.New())
		assert.ErrorIs(t, err, pehub.ErrContentNotFound)
		assert.Equal(t, i18n.NotFound, pehub.NoticeKey(err, i18n.DeleteError))
	})
}

func TestOnContentChanged_Unsubscribe(t *testing.T) {
	env := setupService(t)
	calls := 0
	unsubscribe := env.svc.OnContentChanged(func(pehub.ContentChange) { calls++ })
	unsubscribe()

	_, err := env.svc.UploadContent(context.Background(), env.admin, pehub.UploadContentRequest{
		Title: "t", URL: "https://x.example/a", Type: "talent", StageID: "primary", CategoryID: "individual-sports",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}
