package service

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Reserved holds the static key tables. It is built once at startup and never mutated.
type Reserved struct {
	keys  map[string]string // key -> literal text
	links map[string]string // key -> redirect target
}

// DefaultFixedKeys answer with literal text.
var DefaultFixedKeys = map[string]string{
	"health": "OK",
	"help":   "https://github.com/BRAVO68WEB/url-store-kv-worker",
}

// DefaultFixedLinks answer with a permanent redirect.
var DefaultFixedLinks = map[string]string{
	"favicon.ico": "https://www.cloudflare.com/favicon.ico",
	"robots.txt":  "https://www.cloudflare.com/robots.txt",
	"github":      "https://github.com/BRAVO68WEB/url-store-kv-worker",
	"bravo68web":  "https://itsmebravo.dev",
}

// RouteKeys are path segments served by HTTP routes; a link stored under one would be unreachable.
var RouteKeys = []string{"create", "stats", "list", "view"}

// NewReserved copies both tables and rejects empty keys or keys present in both.
func NewReserved(fixedKeys, fixedLinks map[string]string) (*Reserved, error) {
	for key := range fixedKeys {
		if key == "" {
			return nil, fmt.Errorf("reserved keys: empty key")
		}
		if _, dup := fixedLinks[key]; dup {
			return nil, fmt.Errorf("reserved keys: %q is both a fixed key and a fixed link", key)
		}
	}
	for key, target := range fixedLinks {
		if key == "" {
			return nil, fmt.Errorf("reserved links: empty key")
		}
		if target == "" {
			return nil, fmt.Errorf("reserved links: %q has no target", key)
		}
	}

	return &Reserved{
		keys:  maps.Clone(fixedKeys),
		links: maps.Clone(fixedLinks),
	}, nil
}

// DefaultReserved returns the compiled-in tables.
func DefaultReserved() *Reserved {
	r, err := NewReserved(DefaultFixedKeys, DefaultFixedLinks)
	if err != nil {
		panic(err)
	}
	return r
}

type reservedFile struct {
	FixedKeys  map[string]string `yaml:"fixed_keys"`
	FixedLinks map[string]string `yaml:"fixed_links"`
}

// LoadReserved reads tables from a YAML file. A section missing from the file keeps its default.
func LoadReserved(path string) (*Reserved, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reserved file: %w", err)
	}

	var f reservedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing reserved file: %w", err)
	}
	if f.FixedKeys == nil {
		f.FixedKeys = DefaultFixedKeys
	}
	if f.FixedLinks == nil {
		f.FixedLinks = DefaultFixedLinks
	}
	return NewReserved(f.FixedKeys, f.FixedLinks)
}

func (r *Reserved) Text(key string) (string, bool) {
	text, ok := r.keys[key]
	return text, ok
}

func (r *Reserved) Link(key string) (string, bool) {
	target, ok := r.links[key]
	return target, ok
}

// IsReserved reports whether key belongs to either table.
func (r *Reserved) IsReserved(key string) bool {
	_, text := r.keys[key]
	_, link := r.links[key]
	return text || link
}
