// package config reads the optional yaml configuration of the benchtrend
// server and CLI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/open-sauced/benchtrend/pkg/common"
	"github.com/open-sauced/benchtrend/pkg/insights"
	"github.com/open-sauced/benchtrend/pkg/providers"
)

// Config is the parsed yaml file. Every field is optional.
type Config struct {
	// NeverEvictRepos are feed repositories the git cache always keeps
	NeverEvictRepos []string `yaml:"never-evict-repos"`

	// Feeds are refreshed once when the server starts
	Feeds []providers.FeedSource `yaml:"feeds"`

	Alpha               float64 `yaml:"alpha"`
	AlertRatio          float64 `yaml:"alert-ratio"`
	RequireSignificance bool    `yaml:"require-significance"`
}

// Load reads and validates the yaml file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read yaml configuration file: %w", err)
	}

	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("could not unmarshal configuration file: %w", err)
	}

	if c.Alpha < 0 || c.Alpha >= 1 {
		return nil, fmt.Errorf("alpha must be in [0, 1): %v", c.Alpha)
	}

	if c.AlertRatio != 0 && c.AlertRatio < 1 {
		return nil, fmt.Errorf("alert-ratio must be at least 1: %v", c.AlertRatio)
	}

	for i, feed := range c.Feeds {
		if feed.RepoURL == "" {
			return nil, fmt.Errorf("feeds[%d] is missing a url", i)
		}
		c.Feeds[i] = feed.WithDefaults()
	}

	return c, nil
}

// NeverEvict returns the never-evict-repos as the set the git cache expects,
// keyed by the same normalized URL that validated feed sources carry.
func (c *Config) NeverEvict() providers.NeverEvictRepos {
	repos := make(providers.NeverEvictRepos, len(c.NeverEvictRepos))
	for _, repo := range c.NeverEvictRepos {
		if normalized, err := common.NormalizeGitURL(repo); err == nil {
			repo = normalized
		}
		repos[repo] = true
	}
	return repos
}

// InsightOptions returns the comparison options for pkg/insights.
func (c *Config) InsightOptions() insights.Options {
	return insights.Options{
		Alpha:               c.Alpha,
		AlertRatio:          c.AlertRatio,
		RequireSignificance: c.RequireSignificance,
	}
}
