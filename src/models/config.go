package models

// MConfig Structure
type MConfig struct {
	Name          string           `yaml:"name"`
	LogLevel      string           `yaml:"log_level"`
	GrpcHost      string           `yaml:"grpc_host"`
	GrpcPort      int              `yaml:"grpc_port"`
	TradeFeedSize int              `yaml:"trade_feed_size"`
	MarketMIC     string           `yaml:"market_mic"`
	API           MAPIConfig       `yaml:"api"`
	Stream        MStreamConfig    `yaml:"stream"`
	Bootstrap     MBootstrapConfig `yaml:"bootstrap"`
	Relay         MRelayConfig     `yaml:"relay"`
	Storage       MStorageConfig   `yaml:"storage"`
}

type MAPIConfig struct {
	BaseURL            string   `yaml:"base_url"`
	StreamPath         string   `yaml:"stream_path"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
	Proxies            []string `yaml:"proxies"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

type MStreamConfig struct {
	ReconnectDelayMs        int `yaml:"reconnect_delay_ms"`
	PingIntervalSeconds     int `yaml:"ping_interval_seconds"`
	HandshakeTimeoutSeconds int `yaml:"handshake_timeout_seconds"`
}

type MBootstrapConfig struct {
	Retries      int `yaml:"retries"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
}

type MRelayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}
