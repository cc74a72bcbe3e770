// Package config defines the application configuration and its loader.
package config
