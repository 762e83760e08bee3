package signal

import (
	"encoding/json"
	"strings"
)

// ClientScriptPath is the fixed, well-known URL the bootstrap script is
// served at, so non-HTML entry points can load it with a script tag.
const ClientScriptPath = "/__sockline/client.js"

// ScriptTag is the snippet injected into served HTML to load the
// bootstrap script as first-party content.
const ScriptTag = `<script src="` + ClientScriptPath + `"></script>`

// scriptConfig is the subset of ChannelConfig embedded in the script.
type scriptConfig struct {
	Host       string `json:"host"`
	Port       string `json:"port"`
	Path       string `json:"path"`
	PublicHost string `json:"publicHost"`
	LogLevel   string `json:"logLevel"`
	Hot        bool   `json:"hot"`
	LiveReload bool   `json:"liveReload"`
}

// GenerateScript produces the browser bootstrap program. It embeds the
// channel configuration as literal data and a JavaScript copy of the
// address resolution algorithm, because fields left unset must resolve
// against the browser's own window.location, not against anything the
// server could know ahead of time.
func GenerateScript(cfg ChannelConfig) string {
	data, _ := json.Marshal(scriptConfig{
		Host:       cfg.Host,
		Port:       cfg.Port,
		Path:       cfg.Path,
		PublicHost: cfg.PublicHost,
		LogLevel:   string(cfg.LogLevel),
		Hot:        cfg.Hot,
		LiveReload: cfg.LiveReload,
	})

	return strings.Replace(clientScript, "__SOCKLINE_CONFIG__", string(data), 1)
}

// InjectScript inserts the loader tag into an HTML document, preferring
// the end of <body>. Documents without either closing tag get the tag
// appended.
func InjectScript(html string) string {
	if idx := strings.LastIndex(html, "</body>"); idx != -1 {
		return html[:idx] + ScriptTag + html[idx:]
	}
	if idx := strings.LastIndex(html, "</html>"); idx != -1 {
		return html[:idx] + ScriptTag + html[idx:]
	}
	return html + ScriptTag
}

// clientScript mirrors the Go resolver and policy. Keep resolve() in
// lockstep with Resolve in resolve.go: both ends must always compute the
// same address.
const clientScript = `(function() {
    'use strict';

    var config = __SOCKLINE_CONFIG__;
    var retryInterval = 2000;
    var ws = null;
    var retryTimer = null;
    var unloading = false;

    var levels = { silent: 0, error: 1, warn: 2, info: 3, debug: 4 };

    function log(level, line) {
        if (config.logLevel === 'silent') return;
        if (levels[config.logLevel] < levels[level]) return;
        var fn = level === 'error' ? console.error :
                 level === 'warn' ? console.warn : console.log;
        fn.call(console, '[sockline] ' + line);
    }

    function logAlways(level, line) {
        if (config.logLevel === 'silent') return;
        var fn = level === 'error' ? console.error : console.warn;
        fn.call(console, '[sockline] ' + line);
    }

    function parsePublicHost(s) {
        var p = { hostname: '', port: '', path: '' };
        var rest = s;
        var i = rest.indexOf('/');
        if (i >= 0) {
            p.path = rest.slice(i).replace(/\/$/, '');
            rest = rest.slice(0, i);
        }
        i = rest.indexOf(':');
        if (i >= 0) {
            p.port = rest.slice(i + 1);
            rest = rest.slice(0, i);
        }
        p.hostname = rest;
        return p;
    }

    function normalizePath(p) {
        if (p.charAt(0) !== '/') p = '/' + p;
        while (p.length > 1 && p.charAt(p.length - 1) === '/') {
            p = p.slice(0, -1);
        }
        return p;
    }

    function resolve(cfg, location) {
        var pub = { hostname: '', port: '', path: '' };
        if (cfg.publicHost) pub = parsePublicHost(cfg.publicHost);

        var addr = {
            protocol: location.protocol === 'https:' ? 'wss' : 'ws',
            hostname: cfg.host || pub.hostname || location.hostname,
            port: cfg.port || pub.port || location.port,
            path: '/sockjs-node'
        };
        if (cfg.path) {
            addr.path = normalizePath(cfg.path);
        } else if (pub.path) {
            addr.path = normalizePath(pub.path);
        }
        return addr;
    }

    function url(addr) {
        var u = addr.protocol + '://' + addr.hostname;
        if (addr.port) u += ':' + addr.port;
        return u + addr.path;
    }

    function applyUpdate() {
        if (config.hot) {
            log('info', 'App updated. Applying hot update...');
            if (window.__socklineHotApply) {
                window.__socklineHotApply();
                return;
            }
            // No hot runtime present; reloading is the only safe update.
        }
        if (config.hot || config.liveReload) {
            log('info', 'App updated. Reloading...');
            window.location.reload();
        } else {
            log('info', 'App updated.');
        }
    }

    function handle(ev) {
        switch (ev.type) {
            case 'invalid':
                log('info', 'App updated. Recompiling...');
                break;
            case 'still-ok':
                log('info', 'Nothing changed.');
                break;
            case 'ok':
                applyUpdate();
                break;
            case 'warnings':
                logAlways('warn', 'Warnings while compiling.');
                (ev.data || []).forEach(function(line) { logAlways('warn', line); });
                applyUpdate();
                break;
            case 'errors':
                logAlways('error', 'Errors while compiling. Reload prevented.');
                (ev.data || []).forEach(function(line) { logAlways('error', line); });
                break;
        }
    }

    function scheduleRetry() {
        if (unloading || retryTimer !== null) return;
        retryTimer = setTimeout(function() {
            retryTimer = null;
            connect();
        }, retryInterval);
    }

    function connect() {
        if (unloading) return;
        var addr = resolve(config, window.location);
        ws = new WebSocket(url(addr));

        ws.onopen = function() {
            log('info', 'Connected to ' + url(addr));
        };

        ws.onmessage = function(e) {
            var ev;
            try {
                ev = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            handle(ev);
        };

        ws.onclose = function() {
            if (unloading) return;
            log('error', 'Connection lost. Retrying...');
            scheduleRetry();
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    window.addEventListener('pagehide', function() {
        unloading = true;
        if (retryTimer !== null) {
            clearTimeout(retryTimer);
            retryTimer = null;
        }
        if (ws) ws.close();
    });

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', connect);
    } else {
        connect();
    }
})();
`
