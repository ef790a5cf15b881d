// Package presets builds ready-to-use hubs for local development and tests.
package presets

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/config"
	"github.com/tendant/pehub/pkg/pehub/realtime"
	"github.com/tendant/pehub/pkg/pehub/repo/memory"
	memorystorage "github.com/tendant/pehub/pkg/pehub/storage/memory"
	"github.com/tendant/pehub/pkg/pehub/taxonomy"
)

// Testing file URLs are issued under this prefix.
const TestingURLPrefix = "http://hub.test/api/v1/files"

// NewDevelopment builds a runtime with an in-memory database and files
// under ./dev-data. The returned cleanup closes the runtime and removes the
// storage directory.
func NewDevelopment(ctx context.Context, opts ...DevelopmentOption) (*config.Runtime, func(), error) {
	dc := &devConfig{storageDir: "./dev-data", port: "8080"}
	for _, opt := range opts {
		opt(dc)
	}

	cfg, err := config.Load(
		config.WithEnvironment("development"),
		config.WithPort(dc.port),
		config.WithDatabase("memory", ""),
		config.WithFilesystemStorage(dc.storageDir),
		config.WithAdminAllowlist(dc.admins...),
	)
	if err != nil {
		return nil, nil, err
	}
	rt, err := cfg.BuildService(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build development hub: %w", err)
	}
	cleanup := func() {
		rt.Close()
		os.RemoveAll(dc.storageDir)
	}
	return rt, cleanup, nil
}

type devConfig struct {
	storageDir string
	port       string
	admins     []string
}

// DevelopmentOption customizes NewDevelopment.
type DevelopmentOption func(*devConfig)

// WithDevStorage sets the development storage directory.
func WithDevStorage(dir string) DevelopmentOption {
	return func(c *devConfig) { c.storageDir = dir }
}

// WithDevPort sets the port recorded in the development config.
func WithDevPort(port string) DevelopmentOption {
	return func(c *devConfig) { c.port = port }
}

// WithDevAdmins sets the admin email allowlist.
func WithDevAdmins(emails ...string) DevelopmentOption {
	return func(c *devConfig) { c.admins = emails }
}

// Testing is a hub wired to in-memory backends with one admin and one
// regular profile already present.
type Testing struct {
	Service    pehub.Service
	Repository *memory.Repository
	Store      *memorystorage.Backend
	Hub        *realtime.Hub
	Admin      pehub.Actor
	User       pehub.Actor
	Content    []*pehub.ContentItem
}

type testConfig struct {
	fixtures bool
	options  []pehub.Option
}

// TestingOption customizes NewTesting.
type TestingOption func(*testConfig)

// WithTestFixtures uploads one sample item of every content type to the
// primary stage's team sports category.
func WithTestFixtures() TestingOption {
	return func(c *testConfig) { c.fixtures = true }
}

// WithServiceOptions passes extra options to pehub.New. They are applied
// after the in-memory backends, so they may replace them.
func WithServiceOptions(opts ...pehub.Option) TestingOption {
	return func(c *testConfig) { c.options = append(c.options, opts...) }
}

// NewTesting builds a Testing hub. Everything it starts is released through
// t.Cleanup.
func NewTesting(t testing.TB, opts ...TestingOption) *Testing {
	t.Helper()
	tc := &testConfig{}
	for _, opt := range opts {
		opt(tc)
	}

	tt := &Testing{
		Repository: memory.New(),
		Store:      memorystorage.New(TestingURLPrefix),
		Hub:        realtime.NewHub(),
		Admin:      pehub.Actor{UserID: uuid.New(), Email: "admin@pehub.example"},
		User:       pehub.Actor{UserID: uuid.New(), Email: "teacher@pehub.example"},
	}
	t.Cleanup(func() { _ = tt.Hub.Close() })

	options := append([]pehub.Option{
		pehub.WithRepository(tt.Repository),
		pehub.WithBlobStore(tt.Store),
		pehub.WithPublisher(tt.Hub),
	}, tc.options...)
	svc, err := pehub.New(options...)
	if err != nil {
		t.Fatalf("failed to create test hub: %v", err)
	}
	tt.Service = svc

	ctx := context.Background()
	now := time.Now().UTC()
	for _, p := range []*pehub.Profile{
		{ID: tt.Admin.UserID, Email: tt.Admin.Email, FullName: "المشرف", Role: pehub.RoleAdmin, CreatedAt: now},
		{ID: tt.User.UserID, Email: tt.User.Email, FullName: "أحمد", Role: pehub.RoleUser, CreatedAt: now},
	} {
		if err := tt.Repository.CreateProfile(ctx, p); err != nil {
			t.Fatalf("failed to seed profile %s: %v", p.Email, err)
		}
	}

	if tc.fixtures {
		for _, label := range []string{taxonomy.Videos, taxonomy.Images, taxonomy.Files} {
			item, err := svc.UploadContent(ctx, tt.Admin, pehub.UploadContentRequest{
				Title:      "نموذج " + label,
				URL:        "https://cdn.pehub.example/" + label + "/sample",
				Type:       taxonomy.StorageType(label),
				StageID:    "primary",
				CategoryID: "team-sports",
			})
			if err != nil {
				t.Fatalf("failed to seed %s fixture: %v", label, err)
			}
			tt.Content = append(tt.Content, item)
		}
	}
	return tt
}
