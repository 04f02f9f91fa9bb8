// Package config defines the engine's on-disk configuration shape,
// decoded with gopkg.in/yaml.v2, the same YAML library the teacher
// (readium-lcp-server) lists as a direct dependency for its own
// configuration file.
package config

import (
	"os"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"gopkg.in/yaml.v2"

	"github.com/readium/xmlenc/errs"
	"github.com/readium/xmlenc/transform"
)

// EngineConfig is the top-level configuration for the xmlenc engine and
// its companion CLI.
type EngineConfig struct {
	// KeysFile points at the XML Keys document KeysManager.Load reads.
	KeysFile string `yaml:"keys_file"`
	// Strict controls whether KeysManager.Load aborts or skips a
	// malformed key record.
	Strict bool `yaml:"strict"`

	TrustedCertsDir   string `yaml:"trusted_certs_dir,omitempty"`
	UntrustedCertsDir string `yaml:"untrusted_certs_dir,omitempty"`

	// S3 configures static credentials for s3:// CipherReference
	// dereferencing; left zero, the AWS SDK's default provider chain is
	// used instead.
	S3 S3Config `yaml:"s3,omitempty"`

	// AllowedCipherReferenceURIs lists the URI classes ("empty",
	// "same-doc", "local", "remote", "cid") CipherReference is permitted
	// to dereference.
	AllowedCipherReferenceURIs []string `yaml:"allowed_cipher_reference_uris"`

	Log LogConfig `yaml:"log"`

	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures the logrus-based structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// S3Config pins the access key pair used to dereference s3:// CipherData
// URIs, the same AccessKeyID/SecretKey shape the teacher's own S3 client
// configuration (guided-traffic-s3-encryption-proxy) exposes.
type S3Config struct {
	AccessKeyID string `yaml:"access_key_id,omitempty"`
	SecretKey   string `yaml:"secret_key,omitempty"`
}

// ApplyS3Credentials installs c.S3 as the static credential provider
// transform.fetchS3 presents to AWS, when both fields are set.
func (c EngineConfig) ApplyS3Credentials() {
	if c.S3.AccessKeyID == "" || c.S3.SecretKey == "" {
		return
	}
	provider := credentials.NewStaticCredentialsProvider(c.S3.AccessKeyID, c.S3.SecretKey, "")
	transform.S3StaticCredentials = &provider
}

// Default returns a conservative, fully-populated configuration.
func Default() EngineConfig {
	return EngineConfig{
		Strict:                     true,
		AllowedCipherReferenceURIs: []string{"empty", "same-doc"},
		Log:                        LogConfig{Level: "info", Format: "text"},
		Metrics:                    MetricsConfig{Enabled: false, Addr: ":9090"},
	}
}

// URITypes converts AllowedCipherReferenceURIs into the bitset EncCtx
// expects, ignoring unrecognized class names.
func (c EngineConfig) URITypes() transform.URIType {
	var out transform.URIType
	classes := map[string]transform.URIType{
		"empty":    transform.URITypeEmpty,
		"same-doc": transform.URITypeSameDoc,
		"local":    transform.URITypeLocal,
		"remote":   transform.URITypeRemote,
		"cid":      transform.URITypeCID,
	}
	for _, name := range c.AllowedCipherReferenceURIs {
		out |= classes[name]
	}
	return out
}

// Load reads and decodes an EngineConfig from path, layering it on top of
// Default so a partial file only overrides what it mentions.
func Load(path string) (EngineConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errs.Wrap("config", errs.KindIO, "reading configuration file", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errs.Wrap("config", errs.KindXML, "parsing configuration file", err)
	}
	return cfg, nil
}
