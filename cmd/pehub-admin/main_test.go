package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/api"
)

func TestParseFlag(t *testing.T) {
	tests := []struct {
		arg, key, value string
	}{
		{"--json", "json", "true"},
		{"--role=admin", "role", "admin"},
		{"--email=a=b@x", "email", "a=b@x"},
		{"--", "", ""},
		{"teacher@school.example", "", ""},
	}
	for _, tt := range tests {
		key, value := parseFlag(tt.arg)
		assert.Equal(t, tt.key, key, tt.arg)
		assert.Equal(t, tt.value, value, tt.arg)
	}
}

func TestParseArgs(t *testing.T) {
	opts := parseArgs([]string{"--as=abc", "head@school.example", "--json"})
	assert.True(t, opts.useJSON)
	assert.Equal(t, "abc", opts.flags["as"])
	assert.Equal(t, []string{"head@school.example"}, opts.args)
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, run(context.Background(), nil, &out), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"frobnicate"}, &out), errUsage)

	require.NoError(t, run(context.Background(), []string{"help"}, &out))
	assert.Contains(t, out.String(), "COMMANDS:")
}

func TestRun_Token(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	id := uuid.New()

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"token", "--user-id=" + id.String(), "--email=coach@school.example", "--json"}, &out))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	token, err := api.NewTokenAuth("cli-secret").Decode(resp["token"])
	require.NoError(t, err)
	assert.Equal(t, id.String(), token.Subject())

	assert.ErrorIs(t, run(context.Background(), []string{"token"}, &out), errUsage)
}

func TestRun_TokenNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	err := run(context.Background(), []string{"token", "--user-id=" + uuid.NewString()}, &bytes.Buffer{})
	assert.EqualError(t, err, "JWT_SECRET is not set")
}

func TestRun_MaintenanceOnMemory(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory")
	t.Setenv("STORAGE_URL", "memory")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"cleanup"}, &out))
	assert.Equal(t, "Removed 0 file(s)\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"reconcile", "--json"}, &out))
	assert.JSONEq(t, `{"repaired":0}`, out.String())
}

func TestRun_AdminCommandsNeedAdmin(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory")
	t.Setenv("STORAGE_URL", "memory")

	err := run(context.Background(), []string{"stats"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errUsage)

	err = run(context.Background(), []string{"stats", "--as=" + uuid.NewString()}, &bytes.Buffer{})
	assert.ErrorIs(t, err, pehub.ErrForbidden)

	err = run(context.Background(), []string{"demote", "--as=" + uuid.NewString()}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errUsage)
}
