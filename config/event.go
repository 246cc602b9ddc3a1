package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/padraicbc/oresults/results"
)

// EventConfig describes one event. It is read from a YAML file:
//
//	kind: relay
//	date: 2024-05-11
//	mass_start: "10:00:00"
//	legs:
//	  - name: "1"
//	    courses: [A1, A2]
//	    default_time: 55m
type EventConfig struct {
	Kind            string        `mapstructure:"kind"`
	Date            string        `mapstructure:"date"`
	MassStart       string        `mapstructure:"mass_start"`
	StartStrategy   string        `mapstructure:"start_strategy"`
	MinLapGap       time.Duration `mapstructure:"min_lap_gap"`
	SkipUnscoreable bool          `mapstructure:"skip_unscoreable"`
	Legs            []LegConfig   `mapstructure:"legs"`
	Relay24         Relay24Config `mapstructure:"relay24"`
	OpenControls    []int64       `mapstructure:"open_controls"`
}

// LegConfig is one classic relay leg.
type LegConfig struct {
	Name        string        `mapstructure:"name"`
	Courses     []string      `mapstructure:"courses"`
	DefaultTime time.Duration `mapstructure:"default_time"`
	MassStart   string        `mapstructure:"mass_start"`
}

// Relay24Config configures 24h and 12h relays.
type Relay24Config struct {
	Start           string                   `mapstructure:"start"`
	Duration        time.Duration            `mapstructure:"duration"`
	Method          string                   `mapstructure:"method"`
	Speed           time.Duration            `mapstructure:"speed"`
	OmissionPenalty time.Duration            `mapstructure:"omission_penalty"`
	OrderCheck      *bool                    `mapstructure:"order_check"`
	Pools           PoolsConfig              `mapstructure:"pools"`
	Expected        map[string]time.Duration `mapstructure:"expected"`
}

// PoolsConfig lists the course codes of each 24h pool.
type PoolsConfig struct {
	Start  []string `mapstructure:"start"`
	Night  []string `mapstructure:"night"`
	Day    []string `mapstructure:"day"`
	Finish []string `mapstructure:"finish"`
}

// LoadEvent reads the event file at path.
func LoadEvent(path string) (*EventConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("kind", string(results.KindClassic))
	v.SetDefault("start_strategy", string(results.StartSelf))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read event config: %w", err)
	}
	ec := &EventConfig{}
	if err := v.Unmarshal(ec); err != nil {
		return nil, fmt.Errorf("decode event config: %w", err)
	}
	return ec, nil
}

// LoadEventOptions reads the event file at path and converts it. A missing
// file is a classic event with self starts.
func LoadEventOptions(path string) (results.Options, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return results.Options{Kind: results.KindClassic, StartStrategy: results.StartSelf}, nil
	}
	ec, err := LoadEvent(path)
	if err != nil {
		return results.Options{}, err
	}
	return ec.Options()
}

// Options converts the file form into event options.
func (ec *EventConfig) Options() (results.Options, error) {
	opts := results.Options{
		Kind:            results.EventKind(strings.ToLower(ec.Kind)),
		StartStrategy:   results.StartKind(strings.ToLower(ec.StartStrategy)),
		MinLapGap:       ec.MinLapGap,
		SkipUnscoreable: ec.SkipUnscoreable,
		OpenControls:    ec.OpenControls,
	}
	switch opts.Kind {
	case "", results.KindClassic, results.KindRelay, results.KindRelay24, results.KindRelay12, results.KindRounds:
	default:
		return opts, fmt.Errorf("unknown event kind %q", ec.Kind)
	}
	switch opts.StartStrategy {
	case "", results.StartSelf, results.StartMass, results.StartRelay, results.StartRelayUnordered, results.StartRelayMass:
	default:
		return opts, fmt.Errorf("unknown start strategy %q", ec.StartStrategy)
	}

	var err error
	if opts.MassStart, err = ec.instant(ec.MassStart); err != nil {
		return opts, fmt.Errorf("mass_start: %w", err)
	}
	for i, l := range ec.Legs {
		leg := results.Leg{Name: l.Name, Courses: l.Courses}
		if leg.Name == "" {
			leg.Name = fmt.Sprint(i + 1)
		}
		if l.DefaultTime > 0 {
			d := l.DefaultTime
			leg.DefaultTime = &d
		}
		if leg.MassStart, err = ec.instant(l.MassStart); err != nil {
			return opts, fmt.Errorf("leg %s mass_start: %w", leg.Name, err)
		}
		opts.Legs = append(opts.Legs, leg)
	}

	r := ec.Relay24
	opts.Relay24 = results.Relay24Config{
		Duration:        r.Duration,
		Method:          strings.ToLower(r.Method),
		Speed:           r.Speed,
		Expected:        r.Expected,
		OmissionPenalty: r.OmissionPenalty,
		FreeOrder:       r.OrderCheck != nil && !*r.OrderCheck,
		Pools: results.Pools{
			Start:  r.Pools.Start,
			Night:  r.Pools.Night,
			Day:    r.Pools.Day,
			Finish: r.Pools.Finish,
		},
	}
	start, err := ec.instant(r.Start)
	if err != nil {
		return opts, fmt.Errorf("relay24 start: %w", err)
	}
	switch {
	case start != nil:
		opts.Relay24.Start = *start
	case opts.MassStart != nil:
		opts.Relay24.Start = *opts.MassStart
	}
	return opts, nil
}

// instant parses an RFC3339 timestamp or a clock time on the event date.
func (ec *EventConfig) instant(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if ec.Date == "" {
		return nil, fmt.Errorf("clock time %q needs a date", s)
	}
	t, err := time.ParseInLocation(time.DateOnly+" "+time.TimeOnly, ec.Date+" "+s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
