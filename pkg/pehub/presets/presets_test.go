package presets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/taxonomy"
)

func TestNewDevelopment(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dev-data")
	rt, cleanup, err := NewDevelopment(context.Background(), WithDevStorage(dir), WithDevAdmins("head@school.example"))
	require.NoError(t, err)
	require.NotNil(t, rt.Service)

	resources, err := rt.Service.BrowseContent(context.Background(), pehub.Selection{
		StageID: "primary", SubcategoryID: "team-sports", ContentType: taxonomy.Videos,
	})
	require.NoError(t, err)
	assert.Empty(t, resources)

	_, err = os.Stat(dir)
	require.NoError(t, err, "storage directory should exist while running")

	cleanup()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "storage directory should be removed after cleanup")
}

func TestNewTesting(t *testing.T) {
	tt := NewTesting(t)
	ctx := context.Background()

	admin, err := tt.Service.IsAdmin(ctx, tt.Admin)
	require.NoError(t, err)
	assert.True(t, admin)

	admin, err = tt.Service.IsAdmin(ctx, tt.User)
	require.NoError(t, err)
	assert.False(t, admin)
	assert.Empty(t, tt.Content)
}

func TestNewTesting_Fixtures(t *testing.T) {
	tt := NewTesting(t, WithTestFixtures())
	require.Len(t, tt.Content, 3)

	for _, item := range tt.Content {
		assert.Equal(t, "primary", item.StageID)
		assert.True(t, strings.HasPrefix(item.URL, "https://cdn.pehub.example/"))
	}
	assert.Equal(t, taxonomy.StorageType(taxonomy.Videos), tt.Content[0].Type)

	stats, err := tt.Service.Stats(context.Background(), tt.Admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Content)
	assert.Equal(t, int64(2), stats.Profiles)
}
