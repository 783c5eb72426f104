package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "mediaforge",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "render_jobs_exchange"},
			Queue:    QueueConfig{Name: "render_jobs_queue"},
		},
		Backend: BackendConfig{
			BaseURL:      "http://localhost:8188",
			OutputNodeID: "9",
		},
		Storage: StorageConfig{Bucket: "mediaforge-artifacts"},
		Worker:  WorkerConfig{Concurrency: 4},
	}
}

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

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "mediaforge", cfg.Database.Database)
				assert.Equal(t, "render_jobs_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "render_jobs_queue", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "http://localhost:8188", cfg.Backend.BaseURL)
				assert.Equal(t, "9", cfg.Backend.OutputNodeID)
				assert.Equal(t, "mediaforge-api", cfg.App.Name)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	// Reconciler/reaper settings are omitted from the file and fall back to
	// the reference values.
	assert.Equal(t, 8*time.Second, cfg.Reconciler.SweepInterval)
	assert.Equal(t, 50, cfg.Reconciler.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Reconciler.InterJobDelay)
	assert.Equal(t, 15*time.Minute, cfg.Reaper.MaxAge)
	assert.Equal(t, time.Minute, cfg.Reaper.Interval)
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
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
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name:      "empty backend base url",
			mutate:    func(c *Config) { c.Backend.BaseURL = "" },
			wantErr:   true,
			errString: "backend base_url is required",
		},
		{
			name:      "empty output node",
			mutate:    func(c *Config) { c.Backend.OutputNodeID = "" },
			wantErr:   true,
			errString: "backend output_node_id is required",
		},
		{
			name:      "empty storage bucket",
			mutate:    func(c *Config) { c.Storage.Bucket = "" },
			wantErr:   true,
			errString: "storage bucket is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
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

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		require.NoError(t, validConfig().ValidateWorkerConfig())
	})

	t.Run("zero concurrency", func(t *testing.T) {
		cfg := validConfig()
		cfg.Worker.Concurrency = 0

		err := cfg.ValidateWorkerConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "worker concurrency must be greater than 0")
	})

	t.Run("worker config ignores server port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = 0

		require.NoError(t, cfg.ValidateWorkerConfig())
	})
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
