// Package dev implements the sockline development server: static asset
// serving with bootstrap-script injection, the signalling channel endpoint
// at its resolved path, proxy rules, a polling file watcher, and the
// external build runner that feeds compilation events into the channel.
package dev
