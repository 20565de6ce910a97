package config

import "maps"

// SiteConfig holds settings for one wiki host.
type SiteConfig struct {
	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// PathPrefix overrides the article path prefix (e.g. "/w/" or "/wiki/").
	PathPrefix string `yaml:"pathPrefix,omitempty"`

	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// ExcludePatterns replaces the default URL exclude patterns.
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`

	// Delay raises the delay between requests, in seconds.
	Delay *float64 `yaml:"delay,omitempty"`

	// Workers overrides the number of fetch workers.
	Workers int `yaml:"workers,omitempty"`

	// ProxyURL routes requests through a proxy.
	ProxyURL string `yaml:"proxy,omitempty"`
}

// File represents the structure of the .wikiexport configuration file.
type File struct {
	// Sites maps hosts (e.g. "wiki.example.org") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to all sites unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if siteConfig.PathPrefix != "" {
		result.PathPrefix = siteConfig.PathPrefix
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.ExcludePatterns) > 0 {
		result.ExcludePatterns = siteConfig.ExcludePatterns
	}
	if siteConfig.Delay != nil {
		result.Delay = siteConfig.Delay
	}
	if siteConfig.Workers > 0 {
		result.Workers = siteConfig.Workers
	}
	if siteConfig.ProxyURL != "" {
		result.ProxyURL = siteConfig.ProxyURL
	}

	return result
}
