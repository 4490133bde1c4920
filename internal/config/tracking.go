package config

// Metric names written by the tracker.
const (
	MetricPlayTime      = "TotalPlayTime"
	MetricKills         = "Kills"
	MetricDeaths        = "Deaths"
	MetricClassDKills   = "ClassDKills"
	MetricKillsAsClassD = "KillsAsClassD"
	MetricScpKills      = "ScpKills"
	MetricMicroHidKills = "MicroHidKills"
)

// Tracking toggles which metrics the tracker feeds into the store.
type Tracking struct {
	Playtime      bool `yaml:"playtime" env:"PLAYTIME"`
	Kills         bool `yaml:"kills" env:"KILLS"`
	Deaths        bool `yaml:"deaths" env:"DEATHS"`
	KillsAsClassD bool `yaml:"kills_as_class_d" env:"KILLS_AS_CLASS_D"`
	ClassDKills   bool `yaml:"class_d_kills" env:"CLASS_D_KILLS"`
	ScpKills      bool `yaml:"scp_kills" env:"SCP_KILLS"`
	MicroHidKills bool `yaml:"micro_hid_kills" env:"MICRO_HID_KILLS"`
}

// AllTracking enables every metric.
func AllTracking() Tracking {
	return Tracking{
		Playtime:      true,
		Kills:         true,
		Deaths:        true,
		KillsAsClassD: true,
		ClassDKills:   true,
		ScpKills:      true,
		MicroHidKills: true,
	}
}

// Enabled reports whether metric is tracked. Unknown metric names are
// always enabled.
func (t Tracking) Enabled(metric string) bool {
	switch metric {
	case MetricPlayTime:
		return t.Playtime
	case MetricKills:
		return t.Kills
	case MetricDeaths:
		return t.Deaths
	case MetricKillsAsClassD:
		return t.KillsAsClassD
	case MetricClassDKills:
		return t.ClassDKills
	case MetricScpKills:
		return t.ScpKills
	case MetricMicroHidKills:
		return t.MicroHidKills
	}
	return true
}
