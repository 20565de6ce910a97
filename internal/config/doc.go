// Package config provides the crawl configuration for wikiexport.
// It defines the options resolved once before a crawl starts (start URL,
// scope, politeness and output settings), their defaults and validation,
// and the optional YAML configuration file with per-site overrides.
package config
