package config

// StatsdConfig controls the optional StatsD metrics sink. Metrics are
// disabled unless an address is configured and Enabled is set.
type StatsdConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	Address string `env:"ADDRESS" envDefault:""`
	Prefix  string `env:"PREFIX"  envDefault:"perch"`
}
