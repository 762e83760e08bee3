// Package config loads and validates sockline.json, the project
// configuration for the dev server and its signalling channel.
package config
