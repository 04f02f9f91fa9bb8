package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readium/xmlenc/transform"
)

func TestDefaultIsStrictWithConservativeURIClasses(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.Strict)
	require.Equal(t, transform.URITypeEmpty|transform.URITypeSameDoc, cfg.URITypes())
}

func TestURITypesIgnoresUnrecognizedClasses(t *testing.T) {
	cfg := EngineConfig{AllowedCipherReferenceURIs: []string{"local", "bogus", "cid"}}
	require.Equal(t, transform.URITypeLocal|transform.URITypeCID, cfg.URITypes())
}

func TestLoadLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/xmlenc.yaml"
	contents := "keys_file: /etc/xmlenc/keys.yaml\nlog:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/etc/xmlenc/keys.yaml", cfg.KeysFile)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.True(t, cfg.Strict, "Default's Strict=true must survive when the file doesn't mention it")
	require.Equal(t, []string{"empty", "same-doc"}, cfg.AllowedCipherReferenceURIs)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/xmlenc.yaml")
	require.Error(t, err)
}

func TestApplyS3CredentialsRequiresBothFields(t *testing.T) {
	transform.S3StaticCredentials = nil
	EngineConfig{S3: S3Config{AccessKeyID: "AKIA"}}.ApplyS3Credentials()
	require.Nil(t, transform.S3StaticCredentials)

	EngineConfig{S3: S3Config{AccessKeyID: "AKIA", SecretKey: "secret"}}.ApplyS3Credentials()
	require.NotNil(t, transform.S3StaticCredentials)
	transform.S3StaticCredentials = nil
}
