package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"runtime/debug"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ApplicationNameKey names the service in the catalog.
const ApplicationNameKey = "application.name"

// Catalog is the error catalog: a flat set of dotted keys loaded from YAML,
// with each key overridable from the environment. It is read-only after
// construction.
type Catalog struct {
	values map[string]string
	getenv func(string) (string, bool)
	build  string
}

// LoadCatalog reads and flattens the YAML file at file.
func LoadCatalog(file string) (*Catalog, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read error catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse error catalog %s: %w", file, err)
	}
	return c, nil
}

// ParseCatalog flattens YAML into dotted keys. Nested mappings and dotted
// keys may be mixed freely.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	values := make(map[string]string)
	if err := flatten("", doc, values); err != nil {
		return nil, err
	}
	return NewCatalog(values), nil
}

// NewCatalog creates a catalog from already-flat values.
func NewCatalog(values map[string]string) *Catalog {
	if values == nil {
		values = map[string]string{}
	}
	return &Catalog{
		values: values,
		getenv: os.LookupEnv,
		build:  buildName(),
	}
}

func flatten(prefix string, node any, out map[string]string) error {
	switch v := node.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, child := range v {
			if err := flatten(join(prefix, k), child, out); err != nil {
				return err
			}
		}
	case map[any]any:
		for k, child := range v {
			if err := flatten(join(prefix, fmt.Sprint(k)), child, out); err != nil {
				return err
			}
		}
	case []any:
		for i, child := range v {
			if err := flatten(join(prefix, strconv.Itoa(i)), child, out); err != nil {
				return err
			}
		}
	default:
		if prefix == "" {
			return errors.New("catalog root must be a mapping")
		}
		out[prefix] = fmt.Sprint(v)
	}
	return nil
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Get returns the value for key. An environment variable named EnvKey(key)
// takes precedence over the file.
func (c *Catalog) Get(key string) (string, bool) {
	if v, ok := c.getenv(EnvKey(key)); ok {
		return v, true
	}
	v, ok := c.values[key]
	return v, ok
}

// Len returns the number of keys loaded from the file.
func (c *Catalog) Len() int {
	return len(c.values)
}

// ApplicationName returns the configured service name, or "".
func (c *Catalog) ApplicationName() string {
	v, _ := c.Get(ApplicationNameKey)
	return v
}

// BuildName returns the base of the main module path, or "" when build
// information is unavailable.
func (c *Catalog) BuildName() string {
	return c.build
}

// Ready reports whether the catalog has any entries to resolve codes from.
func (c *Catalog) Ready(_ context.Context) error {
	if len(c.values) == 0 {
		return errors.New("error catalog is empty")
	}
	return nil
}

func buildName() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Path == "" {
		return ""
	}
	return path.Base(info.Main.Path)
}
