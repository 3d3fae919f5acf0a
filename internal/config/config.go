// Package config loads sqldeck's YAML profile file: named connection
// profiles plus shared session options. Loading is strict — unknown keys
// are rejected so a typo never silently drops a setting.
package config

import (
	"bytes"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/sqldeck/sqldeck/internal/errs"
)

// File is the root of the profile file.
type File struct {
	// DefaultProfile names the profile used when the caller selects none.
	DefaultProfile string `yaml:"default_profile"`

	// Profiles maps profile names to connection settings.
	Profiles map[string]Profile `yaml:"profiles"`

	// Options apply to every session built from this file.
	Options Options `yaml:"options"`
}

// Profile holds the connection settings for one target.
type Profile struct {
	URL      string `yaml:"url"`
	Driver   string `yaml:"driver"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Nickname string `yaml:"nickname"`

	// Properties are extra connection properties handed to the driver.
	Properties map[string]string `yaml:"properties"`
}

// Options are the session options shared across profiles.
type Options struct {
	// AutoCommit defaults to true when omitted.
	AutoCommit *bool  `yaml:"auto_commit"`
	Isolation  string `yaml:"isolation"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// AutoCommitEnabled resolves the tri-state auto_commit key.
func (o Options) AutoCommitEnabled() bool {
	if o.AutoCommit == nil {
		return true
	}
	return *o.AutoCommit
}

// Load reads and parses the profile file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("cannot read config %s", path), err)
	}
	return Parse(data)
}

// Parse decodes a profile file from raw YAML.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid config file", err)
	}

	for name, p := range f.Profiles {
		if p.URL == "" {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("profile %q has no url", name))
		}
	}
	if f.DefaultProfile != "" {
		if _, ok := f.Profiles[f.DefaultProfile]; !ok {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("default_profile %q does not exist", f.DefaultProfile))
		}
	}
	return &f, nil
}

// Profile resolves a profile by name. An empty name falls back to
// default_profile, then to the sole profile if exactly one is defined.
func (f *File) Profile(name string) (Profile, error) {
	if name == "" {
		name = f.DefaultProfile
	}
	if name == "" && len(f.Profiles) == 1 {
		for only := range f.Profiles {
			name = only
		}
	}
	if name == "" {
		return Profile{}, errs.New(errs.ErrKindInvalidInput,
			"no profile selected and no default_profile set")
	}

	p, ok := f.Profiles[name]
	if !ok {
		return Profile{}, errs.New(errs.ErrKindNotFound,
			fmt.Sprintf("profile %q not found", name))
	}
	return p, nil
}
