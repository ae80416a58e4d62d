package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File mirrors Config for YAML config files.  Pointer fields tell an
// absent key from a zero value.
//
//	listen: true
//	port: 5000
//	item: Vase
//	status_addr: 127.0.0.1:8080
//	flush_timeout: 3s
type File struct {
	Listen       *bool     `yaml:"listen"`
	Host         *string   `yaml:"host"`
	Port         *int      `yaml:"port"`
	NoDNS        *bool     `yaml:"no_dns"`
	Item         *string   `yaml:"item"`
	StatusAddr   *string   `yaml:"status_addr"`
	FlushTimeout *Duration `yaml:"flush_timeout"`
	Backlog      *int      `yaml:"backlog"`
	Name         *string   `yaml:"name"`
	Timeout      *Duration `yaml:"timeout"`
	Verbose      *int      `yaml:"verbose"`

	SSH struct {
		Tunnel        *string `yaml:"tunnel"`
		Key           *string `yaml:"key"`
		Password      *bool   `yaml:"password"`
		Agent         *bool   `yaml:"agent"`
		StrictHostKey *bool   `yaml:"strict_hostkey"`
		KnownHosts    *string `yaml:"known_hosts"`
	} `yaml:"ssh"`
}

// Duration is a time.Duration that unmarshals from "2s"-style strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// LoadFile reads a YAML config file.  Unknown keys are rejected.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return &f, nil
}

// Apply copies every key present in f onto cfg, except those for which
// keep reports true.  keep receives the matching flag name so values
// set on the command line win.
func (f *File) Apply(cfg *Config, keep func(flag string) bool) {
	if keep == nil {
		keep = func(string) bool { return false }
	}
	setBool(f.Listen, &cfg.Listen, keep("listen"))
	setString(f.Host, &cfg.Host, keep("host"))
	setInt(f.Port, &cfg.Port, keep("port"))
	setBool(f.NoDNS, &cfg.NoDNS, keep("no-dns"))
	setString(f.Item, &cfg.Item, keep("item"))
	setString(f.StatusAddr, &cfg.StatusAddr, keep("status-addr"))
	setDuration(f.FlushTimeout, &cfg.FlushTimeout, keep("flush-timeout"))
	setInt(f.Backlog, &cfg.Backlog, keep("backlog"))
	setString(f.Name, &cfg.Name, keep("name"))
	setDuration(f.Timeout, &cfg.Timeout, keep("timeout"))
	setInt(f.Verbose, &cfg.Verbose, keep("verbose"))

	setString(f.SSH.Tunnel, &cfg.TunnelSpec, keep("tunnel"))
	setString(f.SSH.Key, &cfg.SSHKeyPath, keep("ssh-key"))
	setBool(f.SSH.Password, &cfg.SSHPassword, keep("ssh-password"))
	setBool(f.SSH.Agent, &cfg.UseSSHAgent, keep("ssh-agent"))
	setBool(f.SSH.StrictHostKey, &cfg.StrictHostKey, keep("strict-hostkey"))
	setString(f.SSH.KnownHosts, &cfg.KnownHostsPath, keep("known-hosts"))
}

func setBool(src *bool, dst *bool, keep bool) {
	if src != nil && !keep {
		*dst = *src
	}
}

func setString(src *string, dst *string, keep bool) {
	if src != nil && !keep {
		*dst = *src
	}
}

func setInt(src *int, dst *int, keep bool) {
	if src != nil && !keep {
		*dst = *src
	}
}

func setDuration(src *Duration, dst *time.Duration, keep bool) {
	if src != nil && !keep {
		*dst = time.Duration(*src)
	}
}
