// Package signal implements the live-reload signalling channel: the
// persistent connection a browser page opens back to the dev server to
// receive compilation status and reload notifications.
//
// The package centers on one invariant: the address the server registers
// its endpoint at and the address the browser connects to must be computed
// by the same pure resolution algorithm, so that both ends always agree on
// {hostname, port, path} no matter how many proxies or host overrides sit
// between them. Resolve is that algorithm; GenerateScript ships a
// JavaScript copy of it to the browser.
package signal
