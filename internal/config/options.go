package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/viper"
)

const OptionRedirectMap = "redirect-map"

/**
 * Charm option declaration
 * @property {string} name - Option key as seen by operators
 * @property {string} type - Option type, only "string" is used
 * @property {string} default - Value used when the option is unset
 * @property {string} description - Help text
 */
type Option struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

var OptionSchema = []Option{
	{
		Name:        OptionRedirectMap,
		Type:        "string",
		Default:     "",
		Description: "A URL pointing to a list of redirects for gosherve",
	},
}

var ErrUnknownOption = errors.New("unknown option")

// Options maps option names to their current string values.
type Options map[string]string

func DefaultOptions() Options {
	opts := make(Options, len(OptionSchema))
	for _, o := range OptionSchema {
		opts[o.Name] = o.Default
	}
	return opts
}

// Get returns the value of key, or "" when it is not set
func (o Options) Get(key string) string {
	return o[key]
}

// Keys returns the option names in sorted order
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookupOption(name string) (Option, bool) {
	for _, o := range OptionSchema {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// ValidateOptions rejects keys that are not declared in OptionSchema
func ValidateOptions(values map[string]string) error {
	for k := range values {
		if _, ok := lookupOption(k); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownOption, k)
		}
	}
	return nil
}

/**
 * Source of charm options
 * @description
 * - Load is called on every event, implementations must not cache
 * - Update merges values into the stored options and returns the result
 */
type OptionStore interface {
	Load() (Options, error)
	Update(values map[string]string) (Options, error)
}

// FileOptionStore keeps options in a YAML file read through viper.
type FileOptionStore struct {
	path string
	mu   sync.Mutex
}

func NewFileOptionStore(path string) *FileOptionStore {
	return &FileOptionStore{path: path}
}

func (s *FileOptionStore) Path() string {
	return s.path
}

func (s *FileOptionStore) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	for _, o := range OptionSchema {
		v.SetDefault(o.Name, o.Default)
	}
	return v
}

func (s *FileOptionStore) load() (Options, error) {
	v := s.newViper()
	if _, err := os.Stat(s.path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read options '%s' failed: %w", s.path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	opts := make(Options, len(OptionSchema))
	for _, o := range OptionSchema {
		opts[o.Name] = v.GetString(o.Name)
	}
	return opts, nil
}

/**
 * Load options from file
 * @returns {Options} Options with schema defaults for unset keys
 * @returns {error} Read or parse error
 * @description
 * - A missing file is not an error, all options take their defaults
 * - A fresh viper instance is used so no value survives between calls
 */
func (s *FileOptionStore) Load() (Options, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileOptionStore) Update(values map[string]string) (Options, error) {
	if err := ValidateOptions(values); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	opts, err := s.load()
	if err != nil {
		return nil, err
	}
	for k, val := range values {
		opts[k] = val
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range opts {
		v.Set(k, val)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("create options dir failed: %w", err)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return nil, fmt.Errorf("write options '%s' failed: %w", s.path, err)
	}
	return opts, nil
}

// MemoryOptionStore is an OptionStore without persistence.
type MemoryOptionStore struct {
	mu     sync.Mutex
	values Options
}

func NewMemoryOptionStore(values map[string]string) *MemoryOptionStore {
	opts := DefaultOptions()
	for k, v := range values {
		opts[k] = v
	}
	return &MemoryOptionStore{values: opts}
}

func (s *MemoryOptionStore) Load() (Options, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := make(Options, len(s.values))
	for k, v := range s.values {
		opts[k] = v
	}
	return opts, nil
}

func (s *MemoryOptionStore) Update(values map[string]string) (Options, error) {
	if err := ValidateOptions(values); err != nil {
		return nil, err
	}
	s.mu.Lock()
	for k, v := range values {
		s.values[k] = v
	}
	s.mu.Unlock()
	return s.Load()
}
