package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so a developer's .env or shell
// does not leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORTAL_AUTH_TOKEN", "LEADS_SINCE", "PORTAL_PROXY_URL", "BAYUT_API_URL", "DUBIZZLE_API_URL",
		"BITRIX_WEBHOOK_URL", "DEFAULT_ASSIGNED_USER_ID", "UNASSIGNED_USER_ID", "CALL_OWNER_POLICY",
		"LISTINGS_ENTITY_TYPE_ID", "EXCLUDED_USER_IDS", "STORE_BACKEND", "LEAD_FILE", "DB_PATH",
		"DATABASE_URL", "REDIS_URL", "REDIS_LEADS_KEY", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT",
		"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "INGEST_CRON", "INGEST_INTERVAL", "AMQP_URL",
		"HTTP_ADDR", "LOG_DIR", "LOG_LEVEL", "CODES_FILE",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1593, cfg.CRM.DefaultOwnerID)
	assert.Equal(t, []int{3, 268, 1945}, cfg.CRM.ExcludedUserIDs)
	assert.Equal(t, CallOwnerKeep, cfg.CRM.CallOwnerPolicy)
	assert.Equal(t, 1084, cfg.CRM.ListingsEntityTypeID)
	assert.Equal(t, StoreFile, cfg.Store.Backend)
	assert.Equal(t, "processed_leads.txt", cfg.Store.LeadFile)
	assert.Contains(t, cfg.Portal.BaseURLs["bayut"], "bayut.com")
	assert.Contains(t, cfg.Portal.BaseURLs["dubizzle"], "dubizzle.com")
	assert.False(t, cfg.S3.Enabled())
	assert.Zero(t, cfg.Scheduler.Interval)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_ASSIGNED_USER_ID", "42")
	t.Setenv("EXCLUDED_USER_IDS", " 7, 9 ,")
	t.Setenv("CALL_OWNER_POLICY", CallOwnerSubstituteUnassigned)
	t.Setenv("STORE_BACKEND", StoreSQLite)
	t.Setenv("INGEST_INTERVAL", "15m")
	t.Setenv("S3_BUCKET", "recordings")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.CRM.DefaultOwnerID)
	assert.Equal(t, []int{7, 9}, cfg.CRM.ExcludedUserIDs)
	assert.Equal(t, CallOwnerSubstituteUnassigned, cfg.CRM.CallOwnerPolicy)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.True(t, cfg.S3.Enabled())
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_ASSIGNED_USER_ID", "abc")
	t.Setenv("INGEST_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1593, cfg.CRM.DefaultOwnerID)
	assert.Zero(t, cfg.Scheduler.Interval)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres without url", map[string]string{"STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"redis without url", map[string]string{"STORE_BACKEND": "redis"}, "REDIS_URL"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "mongo"}, "STORE_BACKEND"},
		{"unknown policy", map[string]string{"CALL_OWNER_POLICY": "random"}, "CALL_OWNER_POLICY"},
		{"bad excluded id", map[string]string{"EXCLUDED_USER_IDS": "3,x"}, "EXCLUDED_USER_IDS"},
		{"unknown log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseIntList(t *testing.T) {
	ids, err := parseIntList("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = parseIntList("1,2,3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)

	_, err = parseIntList("1;2")
	assert.Error(t, err)
}

func TestLoadCodesMissingFile(t *testing.T) {
	codes, err := LoadCodes(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultCodeTables(), codes)
}

func TestLoadCodesPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
category_id: "7"
mode_of_enquiry:
  email: "900"
`), 0644))

	codes, err := LoadCodes(path)
	require.NoError(t, err)

	assert.Equal(t, "7", codes.CategoryID)
	assert.Equal(t, map[string]string{"email": "900"}, codes.ModeOfEnquiry)
	assert.Equal(t, DefaultCodeTables().PropertyType, codes.PropertyType)
	assert.Equal(t, "BAYUT", codes.Sources["bayut"])
}

func TestLoadCodesInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: [unclosed"), 0644))

	_, err := LoadCodes(path)
	assert.Error(t, err)
}

func TestShippedCodesFileParses(t *testing.T) {
	_, err := LoadCodes("codes.yaml")
	require.NoError(t, err)
}
