// Package trackcfg resolves which classes are tracked and how, from a YAML file and env rules
package trackcfg

import (
	"os"
	"sort"
	"strings"
	"sync"

	"heapcensus/internal/core/tracking"
	perr "heapcensus/internal/platform/errors"

	"gopkg.in/yaml.v3"
)

// Rule maps a class name, or a prefix ending in "*", to a tracking kind
type Rule struct {
	Match string `yaml:"match"`
	Kind  string `yaml:"kind"`
}

// File is the on disk layout
//
//	track:
//	  - match: java.lang.String
//	    kind: identity
//	  - match: com.acme.*
//	    kind: delta
type File struct {
	Track []Rule `yaml:"track"`
}

type prefixRule struct {
	prefix string
	kind   tracking.Kind
}

// Config answers TrackingKindFor; exact names win over prefixes, longer prefixes win over shorter
type Config struct {
	mu       sync.RWMutex
	exact    map[string]tracking.Kind
	prefixes []prefixRule
}

// New returns a Config that tracks nothing
func New() *Config {
	return &Config{exact: map[string]tracking.Kind{}}
}

// Load reads a YAML rules file
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read tracking file %s", path)
	}
	return Parse(b)
}

// Parse decodes YAML rules
func Parse(b []byte) (*Config, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "parse tracking yaml")
	}
	c := New()
	for i, r := range f.Track {
		if err := c.Add(r); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "track[%d]", i)
		}
	}
	return c, nil
}

// ParseCSV decodes "name=kind,prefix.*=kind" rules
func ParseCSV(s string) (*Config, error) {
	c := New()
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		match, kind, ok := strings.Cut(part, "=")
		if !ok {
			return nil, perr.InvalidArgf("tracking rule %q: want name=kind", part)
		}
		if err := c.Add(Rule{Match: strings.TrimSpace(match), Kind: strings.TrimSpace(kind)}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add installs one rule, replacing an existing rule for the same match
func (c *Config) Add(r Rule) error {
	if r.Match == "" {
		return perr.InvalidArgf("tracking rule: empty match")
	}
	k, err := tracking.ParseKind(r.Kind)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "tracking rule %q", r.Match)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prefix, ok := strings.CutSuffix(r.Match, "*"); ok {
		for i := range c.prefixes {
			if c.prefixes[i].prefix == prefix {
				c.prefixes[i].kind = k
				return nil
			}
		}
		c.prefixes = append(c.prefixes, prefixRule{prefix: prefix, kind: k})
		sort.SliceStable(c.prefixes, func(i, j int) bool {
			return len(c.prefixes[i].prefix) > len(c.prefixes[j].prefix)
		})
		return nil
	}
	c.exact[r.Match] = k
	return nil
}

// Merge adds every rule of o on top of c
func (c *Config) Merge(o *Config) {
	if o == nil {
		return
	}
	for _, r := range o.Rules() {
		_ = c.Add(r)
	}
}

// TrackingKindFor returns the kind configured for className
func (c *Config) TrackingKindFor(className string) (tracking.Kind, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if k, ok := c.exact[className]; ok {
		return k, true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(className, p.prefix) {
			return p.kind, true
		}
	}
	return 0, false
}

// Rules lists the installed rules, exact names first, sorted
func (c *Config) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Rule, 0, len(c.exact)+len(c.prefixes))
	for name, k := range c.exact {
		out = append(out, Rule{Match: name, Kind: k.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Match < out[j].Match })
	for _, p := range c.prefixes {
		out = append(out, Rule{Match: p.prefix + "*", Kind: p.kind.String()})
	}
	return out
}
