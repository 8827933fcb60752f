// Package config reads process settings from environment variables
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"heapcensus/internal/platform/logger"
)

// Conf is a namespaced view over environment variables, e.g. Prefix("CENSUS_")
// The zero value reads unprefixed names.
type Conf struct{ prefix string }

// New returns the root view
func New() Conf { return Conf{} }

// Prefix nests another prefix under c
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// lookup returns the full variable name and its trimmed value
func (c Conf) lookup(k string) (name, val string) {
	name = c.key(k)
	return name, strings.TrimSpace(os.Getenv(name))
}

// orDefault parses the variable with parse; unset yields def, a parse failure warns and yields def
func orDefault[T any](c Conf, k string, def T, kind string, parse func(string) (T, error)) T {
	name, s := c.lookup(k)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", name).Str("value", s).Interface("default", def).
			Msgf("invalid %s; using default", kind)
		return def
	}
	return v
}

// MayString returns the value or def when unset
func (c Conf) MayString(key, def string) string {
	if _, s := c.lookup(key); s != "" {
		return s
	}
	return def
}

func (c Conf) MayInt(key string, def int) int {
	return orDefault(c, key, def, "int", strconv.Atoi)
}

func (c Conf) MayFloat64(key string, def float64) float64 {
	return orDefault(c, key, def, "float", func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func (c Conf) MayBool(key string, def bool) bool {
	return orDefault(c, key, def, "bool", strconv.ParseBool)
}

// MayDuration accepts Go duration syntax (250ms, 2s, 1h)
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return orDefault(c, key, def, "duration", time.ParseDuration)
}

// MayCSV splits a comma separated list, dropping blanks; def when nothing remains
func (c Conf) MayCSV(key string, def []string) []string {
	_, s := c.lookup(key)
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the allowed spelling matching the value (case-insensitive), or def when unset.
// An unknown value is a boot-time misconfiguration and panics.
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	name, s := c.lookup(key)
	if s == "" {
		return def
	}
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return a
		}
	}
	logger.Get().Panic().Str("key", name).Str("value", s).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
