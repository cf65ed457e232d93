package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mkrupp/vcloset/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	StringValue   string        `env:"STRING_VALUE" default:"default"`
	IntValue      int           `env:"INT_VALUE" default:"42"`
	FloatValue    float64       `env:"FLOAT_VALUE" default:"2.1"`
	BoolValue     bool          `env:"BOOL_VALUE" default:"true"`
	DurationValue time.Duration `env:"DURATION_VALUE" default:"168h"`
	ListValue     []string      `env:"LIST_VALUE" default:"http://localhost:3001"`
	NoEnvTag      string
	Nested        testNestedConfig `envPrefix:"NESTED_"`
}

type testNestedConfig struct {
	NestedString string `env:"STRING" default:"nested-default"`
}

func defaults() testConfig {
	return testConfig{
		StringValue:   "default",
		IntValue:      42,
		FloatValue:    2.1,
		BoolValue:     true,
		DurationValue: 7 * 24 * time.Hour,
		ListValue:     []string{"http://localhost:3001"},
		Nested:        testNestedConfig{NestedString: "nested-default"},
	}
}

//nolint:paralleltest
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		envVars map[string]string
		want    func(cfg *testConfig)
		wantErr bool
	}{
		{
			name: "uses default values when env vars not set",
			want: func(*testConfig) {},
		},
		{
			name: "reads environment variables",
			envVars: map[string]string{
				"STRING_VALUE":   "env-value",
				"INT_VALUE":      "123",
				"FLOAT_VALUE":    "0.5",
				"BOOL_VALUE":     "false",
				"DURATION_VALUE": "90s",
				"LIST_VALUE":     "http://a.test, http://b.test,,",
				"NESTED_STRING":  "env-nested",
			},
			want: func(cfg *testConfig) {
				cfg.StringValue = "env-value"
				cfg.IntValue = 123
				cfg.FloatValue = 0.5
				cfg.BoolValue = false
				cfg.DurationValue = 90 * time.Second
				cfg.ListValue = []string{"http://a.test", "http://b.test"}
				cfg.Nested.NestedString = "env-nested"
			},
		},
		{
			name:    "handles prefix correctly",
			prefix:  "APP",
			envVars: map[string]string{"APP_STRING_VALUE": "prefixed-value"},
			want:    func(cfg *testConfig) { cfg.StringValue = "prefixed-value" },
		},
		{
			name:   "prefers more specific prefix",
			prefix: "APP_SERVICE",
			envVars: map[string]string{
				"APP_STRING_VALUE":         "less-specific",
				"APP_SERVICE_STRING_VALUE": "more-specific",
			},
			want: func(cfg *testConfig) { cfg.StringValue = "more-specific" },
		},
		{
			name:    "falls back to shorter prefix for nested fields",
			prefix:  "APP_SERVICE",
			envVars: map[string]string{"APP_NESTED_STRING": "shared"},
			want:    func(cfg *testConfig) { cfg.Nested.NestedString = "shared" },
		},
		{
			name:    "handles empty string values",
			envVars: map[string]string{"STRING_VALUE": ""},
			want:    func(cfg *testConfig) { cfg.StringValue = "" },
		},
		{
			name:    "handles empty lists",
			envVars: map[string]string{"LIST_VALUE": ""},
			want:    func(cfg *testConfig) { cfg.ListValue = []string{} },
		},
		{
			name:    "fails on invalid int value",
			envVars: map[string]string{"INT_VALUE": "not-a-number"},
			wantErr: true,
		},
		{
			name:    "fails on invalid float value",
			envVars: map[string]string{"FLOAT_VALUE": "tall"},
			wantErr: true,
		},
		{
			name:    "fails on invalid bool value",
			envVars: map[string]string{"BOOL_VALUE": "not-a-bool"},
			wantErr: true,
		},
		{
			name:    "fails on invalid duration value",
			envVars: map[string]string{"DURATION_VALUE": "7d"},
			wantErr: true,
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := &testConfig{}
			err := Parse(ctx, cfg, tt.prefix)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)

			want := defaults()
			tt.want(&want)

			assert.Equal(t, want.StringValue, cfg.StringValue)
			assert.Equal(t, want.IntValue, cfg.IntValue)
			assert.InDelta(t, want.FloatValue, cfg.FloatValue, 1e-9)
			assert.Equal(t, want.BoolValue, cfg.BoolValue)
			assert.Equal(t, want.DurationValue, cfg.DurationValue)
			assert.Equal(t, want.ListValue, cfg.ListValue)
			assert.Empty(t, cfg.NoEnvTag)
			assert.Equal(t, want.Nested, cfg.Nested)
			assert.Equal(t, tt.prefix, cfg.Namespace())
		})
	}
}

func TestParseRequiredVar(t *testing.T) {
	t.Parallel()

	cfg := &struct {
		EnvConfig

		Secret string `env:"VCLOSET_TEST_UNSET_SECRET"`
	}{}

	err := Parse(context.Background(), cfg, "")
	require.ErrorIs(t, err, ErrVarNotSet)
}

func TestParseInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  any
	}{
		{name: "non-pointer config", cfg: testConfig{}},
		{name: "non-struct pointer", cfg: new(string)},
		{name: "missing EnvConfig embedding", cfg: &struct {
			Value string `env:"VALUE"`
		}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Parse(context.Background(), tt.cfg, "")
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

//nolint:paralleltest
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(path, []byte("VCLOSET_DOTENV_A=from-file\nVCLOSET_DOTENV_B=from-file\n"), 0o600))

	t.Setenv("VCLOSET_DOTENV_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("VCLOSET_DOTENV_A") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "from-file", os.Getenv("VCLOSET_DOTENV_A"))
	assert.Equal(t, "from-env", os.Getenv("VCLOSET_DOTENV_B"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "nothing-here.env")))
}
