package module

import (
	"strings"
	"time"

	"heapcensus/internal/adapters/trackcfg"
	"heapcensus/internal/platform/config"
	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/platform/net/http/bind"
	"heapcensus/internal/services/census/service"
)

// history modes
const (
	HistoryOff  = "off"
	HistoryAuto = "auto"
	HistoryPG   = "pg"
	HistoryCH   = "ch"
)

// Options holds configuration options for the census engine
type Options struct {
	Coefficient          float64       `validate:"gte=0,lte=100"`
	InitialDelay         time.Duration `validate:"gte=0"`
	BatchSize            int           `validate:"gte=0"`
	ConstrainedBatchSize int           `validate:"gte=0"`
	DrillDownLimit       int           `validate:"gte=0"`

	// Tracking rules: a YAML file plus inline name=kind pairs
	TrackingFile string
	Track        []string

	History       string `validate:"oneof=off auto pg ch"`
	HistoryBuffer int    `validate:"gte=1,lte=65536"`
}

// FromConfig reads the census options from config with CENSUS_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CENSUS_")
	return Options{
		Coefficient:          c.MayFloat64("DELAY_COEFFICIENT", service.DefaultCoefficient),
		InitialDelay:         c.MayDuration("INITIAL_DELAY", 0),
		BatchSize:            c.MayInt("BATCH_SIZE", 0),
		ConstrainedBatchSize: c.MayInt("CONSTRAINED_BATCH_SIZE", 500),
		DrillDownLimit:       c.MayInt("DRILLDOWN_LIMIT", 0),
		TrackingFile:         c.MayString("TRACKING_FILE", ""),
		Track:                c.MayCSV("TRACK", nil),
		History:              strings.ToLower(c.MayEnum("HISTORY", HistoryAuto, HistoryOff, HistoryAuto, HistoryPG, HistoryCH)),
		HistoryBuffer:        c.MayInt("HISTORY_BUFFER", 64),
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	if err := bind.Get().Validator.Struct(o); err != nil {
		_, msg := bind.ValidationFieldAndMessage(err)
		return perr.Newf(perr.ErrorCodeValidation, "census options: %s", msg)
	}
	return nil
}

// ServiceConfig maps options onto the engine config
func (o Options) ServiceConfig() service.Config {
	coefficient := o.Coefficient
	return service.Config{
		Coefficient:          &coefficient,
		InitialDelay:         o.InitialDelay,
		DefaultBatchSize:     o.BatchSize,
		ConstrainedBatchSize: o.ConstrainedBatchSize,
		DrillDownLimit:       o.DrillDownLimit,
	}
}

// Tracking builds the tracking rules; inline rules override file rules
func (o Options) Tracking() (*trackcfg.Config, error) {
	out := trackcfg.New()
	if o.TrackingFile != "" {
		f, err := trackcfg.Load(o.TrackingFile)
		if err != nil {
			return nil, err
		}
		out.Merge(f)
	}
	if len(o.Track) > 0 {
		inline, err := trackcfg.ParseCSV(strings.Join(o.Track, ","))
		if err != nil {
			return nil, err
		}
		out.Merge(inline)
	}
	return out, nil
}
