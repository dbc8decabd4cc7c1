package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "memory", cfg.Storage.Driver)
				assert.Equal(t, "upload_events", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, int64(5)<<30, cfg.Upload.MaxFileSize)
				assert.Equal(t, "uploadq-api", cfg.App.Name)
			}
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load("testdata/minimal_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, DefaultMaxFileSize, cfg.Upload.MaxFileSize)
	assert.Equal(t, "uploads", cfg.Upload.Dir)
	assert.Equal(t, 10*time.Second, cfg.Poll.QueueInterval)
	assert.Equal(t, 30*time.Second, cfg.Poll.StatsInterval)
	assert.Equal(t, 60*time.Second, cfg.Poll.PlatformsInterval)
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Driver: "memory"},
			Upload:  UploadConfig{MaxFileSize: DefaultMaxFileSize},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid memory config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid postgres config",
			mutate: func(c *Config) {
				c.Storage.Driver = "postgres"
				c.Database = DatabaseConfig{Host: "localhost", Port: 5432, Database: "uploadq"}
			},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "unknown storage driver",
			mutate:    func(c *Config) { c.Storage.Driver = "sqlite" },
			wantErr:   true,
			errString: "unknown storage driver",
		},
		{
			name: "postgres driver without host",
			mutate: func(c *Config) {
				c.Storage.Driver = "postgres"
				c.Database = DatabaseConfig{Port: 5432, Database: "uploadq"}
			},
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name: "postgres driver without database name",
			mutate: func(c *Config) {
				c.Storage.Driver = "postgres"
				c.Database = DatabaseConfig{Host: "localhost", Port: 5432}
			},
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name: "rabbitmq enabled without host",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{Enabled: true, Port: 5672, Exchange: ExchangeConfig{Name: "upload_events"}}
			},
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name: "rabbitmq enabled without exchange name",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{Enabled: true, Host: "localhost", Port: 5672}
			},
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name: "rabbitmq disabled skips broker checks",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{Enabled: false}
			},
		},
		{
			name:      "non-positive max file size",
			mutate:    func(c *Config) { c.Upload.MaxFileSize = 0 },
			wantErr:   true,
			errString: "max_file_size must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateMonitorConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Monitor: MonitorConfig{APIBaseURL: "http://127.0.0.1:8080"},
			Poll: PollConfig{
				QueueInterval:     10 * time.Second,
				StatsInterval:     30 * time.Second,
				PlatformsInterval: 60 * time.Second,
			},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid monitor config",
			mutate: func(c *Config) {},
		},
		{
			name:      "missing base url",
			mutate:    func(c *Config) { c.Monitor.APIBaseURL = "" },
			wantErr:   true,
			errString: "api_base_url is required",
		},
		{
			name:      "base url without scheme",
			mutate:    func(c *Config) { c.Monitor.APIBaseURL = "127.0.0.1:8080" },
			wantErr:   true,
			errString: "invalid monitor api_base_url",
		},
		{
			name:      "non-positive interval",
			mutate:    func(c *Config) { c.Poll.StatsInterval = 0 },
			wantErr:   true,
			errString: "poll intervals must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.ValidateMonitorConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateMonitorConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})
}

func TestPortConstants(t *testing.T) {
	t.Run("port constants are correct", func(t *testing.T) {
		assert.Equal(t, 1, MinPort)
		assert.Equal(t, 65535, MaxPort)
	})

	t.Run("invalid port range", func(t *testing.T) {
		invalidPorts := []int{0, -1, 65536, 70000}
		for _, port := range invalidPorts {
			valid := port >= MinPort && port <= MaxPort
			assert.False(t, valid, "port %d should be invalid", port)
		}
	})
}
