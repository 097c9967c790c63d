// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/awslabs/argot-ifds/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains the options of the analysis and the taint tracking problems to solve.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options

	sourceFile string

	// if the PkgFilter is specified
	pkgFilterRegex *regexp.Regexp

	// parsed FlowCacheExpiry
	flowCacheExpiry time.Duration

	// TaintTrackingProblems lists the taint tracking specifications
	TaintTrackingProblems []TaintSpec `yaml:"taint-tracking-problems"`
}

// TaintSpec contains code identifiers that identify a specific taint tracking problem
type TaintSpec struct {
	// Sinks is the list of sinks for the taint analysis
	Sinks []CodeIdentifier

	// Sources is the list of sources for the taint analysis
	Sources []CodeIdentifier
}

// Options are the global options of the analysis.
type Options struct {
	// PkgFilter is a filter for the functions that are lowered and analyzed: only the functions whose package match
	// the filter (as a regex, or as a prefix if the regex does not compile) are kept.
	PkgFilter string `yaml:"pkg-filter"`

	// TaintStaticFields introduces a new taint at every read of a non-final global
	TaintStaticFields bool `yaml:"taint-static-fields"`

	// ExcludedCalleePolicy is the treatment of calls that resolve to no analyzed function. It is either
	// "identity" (the default) or "taint-everything".
	ExcludedCalleePolicy string `yaml:"excluded-callee-policy"`

	// FlowCacheMaxEntries bounds the number of flow functions memoized per cache. If <= 0, the caches are unbounded.
	FlowCacheMaxEntries int `yaml:"flow-cache-max-entries"`

	// FlowCacheExpiry is the duration after which an unused flow function is dropped from the caches, e.g. "10m".
	// "0" means the flow functions never expire.
	FlowCacheExpiry string `yaml:"flow-cache-expiry"`

	// MaxAlarms sets a limit for the number of alarms reported by an analysis.  If MaxAlarms > 0, then at most
	// MaxAlarms will be reported. Otherwise, if MaxAlarms <= 0, it is ignored.
	MaxAlarms int `yaml:"max-alarms"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`
}

// NewDefault returns a config with the default options and no taint tracking problem.
func NewDefault() *Config {
	return &Config{
		flowCacheExpiry: DefaultFlowCacheExpiry,
		Options: Options{
			ExcludedCalleePolicy: ExcludedCalleeIdentity,
			FlowCacheMaxEntries:  DefaultFlowCacheMaxEntries,
			FlowCacheExpiry:      DefaultFlowCacheExpiry.String(),
			LogLevel:             int(InfoLevel),
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename
	return cfg, nil
}

// Parse reads a configuration from yaml content. Options that are not set keep their default value.
func Parse(b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.PkgFilter != "" {
		r, err := regexp.Compile(cfg.PkgFilter)
		if err == nil {
			cfg.pkgFilterRegex = r
		}
	}

	for _, tSpec := range cfg.TaintTrackingProblems {
		funcutil.MapInPlace(tSpec.Sinks, CompileRegexes)
		funcutil.MapInPlace(tSpec.Sources, CompileRegexes)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.ExcludedCalleePolicy {
	case "":
		c.ExcludedCalleePolicy = ExcludedCalleeIdentity
	case ExcludedCalleeIdentity, ExcludedCalleeTaintEverything:
	default:
		errs = append(errs, fmt.Errorf("excluded-callee-policy must be %q or %q, not %q",
			ExcludedCalleeIdentity, ExcludedCalleeTaintEverything, c.ExcludedCalleePolicy))
	}

	if c.FlowCacheExpiry == "" {
		c.flowCacheExpiry = DefaultFlowCacheExpiry
	} else if d, err := time.ParseDuration(c.FlowCacheExpiry); err != nil {
		errs = append(errs, fmt.Errorf("flow-cache-expiry: %w", err))
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("flow-cache-expiry must not be negative, got %s", d))
	} else {
		c.flowCacheExpiry = d
	}
	return errors.Join(errs...)
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// FlowCacheExpiryDuration returns the parsed flow cache expiry
func (c Config) FlowCacheExpiryDuration() time.Duration {
	return c.flowCacheExpiry
}

// MatchPkgFilter returns true if the package name pkgname matches the package filter set in the config file. If no
// package filter has been set in the config file, the regex will match anything and return true. This function safely
// considers the case where a filter has been specified by the user, but it could not be compiled to a regex. The safe
// case is to check whether the package filter string is a prefix of the pkgname
func (c Config) MatchPkgFilter(pkgname string) bool {
	if c.pkgFilterRegex != nil {
		return c.pkgFilterRegex.MatchString(pkgname)
	} else if c.PkgFilter != "" {
		return strings.HasPrefix(pkgname, c.PkgFilter)
	} else {
		return true
	}
}

// IsSomeSource returns true if the code identifier matches any source in the config
func (c Config) IsSomeSource(cid CodeIdentifier) bool {
	return funcutil.Exists(c.TaintTrackingProblems, func(t TaintSpec) bool { return t.IsSource(cid) })
}

// IsSomeSink returns true if the code identifier matches any sink in the config
func (c Config) IsSomeSink(cid CodeIdentifier) bool {
	return funcutil.Exists(c.TaintTrackingProblems, func(t TaintSpec) bool { return t.IsSink(cid) })
}

// SourceLabel returns the label of the first source specification matching cid. The label is the Label of the
// specification if it has one, and the string representation of cid otherwise.
func (c Config) SourceLabel(cid CodeIdentifier) (string, bool) {
	for _, ts := range c.TaintTrackingProblems {
		for _, src := range ts.Sources {
			if cid.equalOnNonEmptyFields(src) {
				if src.Label != "" {
					return src.Label, true
				}
				return cid.String(), true
			}
		}
	}
	return "", false
}

// IsSource returns true if the code identifier matches a source specification in the config file
func (ts TaintSpec) IsSource(cid CodeIdentifier) bool {
	return funcutil.Exists(ts.Sources, cid.equalOnNonEmptyFields)
}

// IsSink returns true if the code identifier matches a sink specification in the config file
func (ts TaintSpec) IsSink(cid CodeIdentifier) bool {
	return funcutil.Exists(ts.Sinks, cid.equalOnNonEmptyFields)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
