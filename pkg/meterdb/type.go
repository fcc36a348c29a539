package meterdb

// DeviceStates is the flat set of states kept per meter.
// Empty values are not stored.
type DeviceStates struct {
	MeterType   string `mapstructure:"meterType"`
	NetManager  string `mapstructure:"netManager"`
	DSMRVersion string `mapstructure:"dsmrVersion"`
	Timestamp   string `mapstructure:"timestamp"`
	MasterState string `mapstructure:"masterState"`
	TextMessage string `mapstructure:"textMessage"`
	MeterID     string `mapstructure:"meterID"`

	CurrentTariff string `mapstructure:"currentTariff"`
	UsedT1        string `mapstructure:"usedT1"`
	UsedT2        string `mapstructure:"usedT2"`
	GeneratedT1   string `mapstructure:"generatedT1"`
	GeneratedT2   string `mapstructure:"generatedT2"`
	NowUsage      string `mapstructure:"nowUsage"`
	NowGenerated  string `mapstructure:"nowGenerated"`
	NowSum        string `mapstructure:"nowSum"`
	NowDirection  string `mapstructure:"nowDirection"`

	CurrentNowPhase1   string `mapstructure:"currentNowPhase1"`
	CurrentNowPhase2   string `mapstructure:"currentNowPhase2"`
	CurrentNowPhase3   string `mapstructure:"currentNowPhase3"`
	VoltageNowPhase1   string `mapstructure:"voltageNowPhase1"`
	VoltageNowPhase2   string `mapstructure:"voltageNowPhase2"`
	VoltageNowPhase3   string `mapstructure:"voltageNowPhase3"`
	UsedNowPhase1      string `mapstructure:"usedNowPhase1"`
	UsedNowPhase2      string `mapstructure:"usedNowPhase2"`
	UsedNowPhase3      string `mapstructure:"usedNowPhase3"`
	GeneratedNowPhase1 string `mapstructure:"generatedNowPhase1"`
	GeneratedNowPhase2 string `mapstructure:"generatedNowPhase2"`
	GeneratedNowPhase3 string `mapstructure:"generatedNowPhase3"`
	VoltageLowPhase1   string `mapstructure:"voltageToLowCountPhase1"`
	VoltageLowPhase2   string `mapstructure:"voltageToLowCountPhase2"`
	VoltageLowPhase3   string `mapstructure:"voltageToLowCountPhase3"`
	VoltageHighPhase1  string `mapstructure:"voltageToHighCountPhase1"`
	VoltageHighPhase2  string `mapstructure:"voltageToHighCountPhase2"`
	VoltageHighPhase3  string `mapstructure:"voltageToHighCountPhase3"`

	OutagesShortCount    string `mapstructure:"outagesShortCount"`
	OutagesLongCount     string `mapstructure:"outagesLongCount"`
	OutagesLongDuration  string `mapstructure:"outagesLongRecentDuration"`
	OutagesLongTimestamp string `mapstructure:"outagesLongRecentTimestamp"`

	GasMeterID   string `mapstructure:"gasMeterID"`
	GasMeterType string `mapstructure:"gasMeterType"`
	GasTimestamp string `mapstructure:"gastimestamp"`
	GasUsed      string `mapstructure:"gasused"`
	GasUsedDM3   string `mapstructure:"gasusedDm3"`
	GasUnit      string `mapstructure:"gastariffUnit"`
	GasValve     string `mapstructure:"gasValve"`
}

// Used when a telegram carries no equipment identifier
const UnknownMeterID = "unknown"
