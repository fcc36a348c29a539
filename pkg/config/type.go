package config

type MeterCollectorConfig struct {
	InterpreterAPIHost string `toml:"interpreter_api_host"`
	TLSEnabled         bool   `toml:"tls_enabled"`
	// Empty uses the default data directory
	DatabasePath string `toml:"database_path"`
}

type InterpreterAPIConfig struct {
	SerialDevice string `toml:"serial_device"`
	// "2" for DSMR 2.2 meters (9600 7E1), "4" or "5" for 115200 8N1
	DSMRVersion string `toml:"dsmr_version"`
	// 0 takes the baudrate from the DSMR version
	Baudrate           uint   `toml:"baudrate"`
	SerialBackend      string `toml:"serial_backend"`
	ReadTimeoutSeconds int    `toml:"read_timeout_seconds"`
	MaxTelegramLines   int    `toml:"max_telegram_lines"`

	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	ShowRaw             bool   `toml:"show_raw"`
	LogLevel            string `toml:"log_level"`
	ValidateChecksum    bool   `toml:"validate_checksum"`

	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`

	SolarInverterIp         string `toml:"solar_inverter_ip"`
	SolarInverterModbusPort int    `toml:"solar_inverter_modbus_port"`
	// Should be named `preconfigured`
	// Check with `nmcli device status`
	WlanConnectionId string `toml:"wlan_connection_id"`

	// Kafka publishing is off while kafka_broker is empty
	KafkaBroker string `toml:"kafka_broker"`
	KafkaTopic  string `toml:"kafka_topic"`
}

const (
	LogLevelNormal  = "Normal"
	LogLevelVerbose = "Verbose"
)
