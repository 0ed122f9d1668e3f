// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// IndexConfig holds settings for building and locating the index.
type IndexConfig struct {
	IndexOptions `yaml:",inline" mapstructure:",squash"`

	// Location is the directory holding the index database.
	Location string `json:"location" yaml:"location" mapstructure:"location"`

	// SourceDirs are the folders indexed when no directories are given on
	// the command line.
	SourceDirs []string `json:"source_dirs" yaml:"source_dirs" mapstructure:"source_dirs"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	// MaxResults is the maximum number of results the backend returns
	// (default 500).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Mode is the default match mode: exact or fuzzy.
	Mode SearchMode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Scope is the default search scope: fulltext or filename.
	Scope SearchScope `json:"scope" yaml:"scope" mapstructure:"scope"`

	// CaseSensitive makes queries case sensitive by default.
	CaseSensitive bool `json:"case_sensitive" yaml:"case_sensitive" mapstructure:"case_sensitive"`
}

// CacheConfig sizes the search result cache.
type CacheConfig struct {
	// Capacity is the number of distinct queries kept (default 128).
	Capacity int `json:"capacity" yaml:"capacity" mapstructure:"capacity"`
}

// ViewConfig holds the persisted filter and sort choices.
type ViewConfig struct {
	// Types is the default file-type filter.
	Types []string `json:"types,omitempty" yaml:"types,omitempty" mapstructure:"types"`

	// Sort is the default sort key.
	Sort string `json:"sort" yaml:"sort" mapstructure:"sort"`

	// Direction is the default sort direction.
	Direction string `json:"direction" yaml:"direction" mapstructure:"direction"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is a zerolog level name: debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every setting docfinder reads.
type Config struct {
	Index  IndexConfig  `json:"index" yaml:"index" mapstructure:"index"`
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	Cache  CacheConfig  `json:"cache" yaml:"cache" mapstructure:"cache"`
	View   ViewConfig   `json:"view" yaml:"view" mapstructure:"view"`
	Log    LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the built-in defaults. Config files, environment
// variables and flags override them.
func DefaultConfig() Config {
	return Config{
		Index: IndexConfig{
			IndexOptions: IndexOptions{
				Exclude:        []string{"**/.git/**", "**/node_modules/**"},
				ExtractTimeout: 30 * time.Second,
				MaxFileSizeKB:  50 * 1024,
			},
			Location: ".docfinder",
		},
		Search: SearchConfig{
			MaxResults: 500,
			Mode:       ModeFuzzy,
			Scope:      ScopeFullText,
		},
		Cache: CacheConfig{Capacity: 128},
		View: ViewConfig{
			Sort:      string(SortRelevance),
			Direction: string(Descending),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// SortSpec returns the persisted sort choice, falling back to the default
// for unknown values.
func (v ViewConfig) SortSpec() SortSpec {
	key, err := ParseSortKey(v.Sort)
	if err != nil {
		return DefaultSort()
	}
	dir, err := ParseDirection(v.Direction)
	if err != nil {
		return DefaultSort()
	}
	return SortSpec{Key: key, Direction: dir}
}
