package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Config errors (E101-E199)
	"E101": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No sockline.json was found in the project directory or any parent.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "sockline.json could not be read or parsed.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "Ports must be between 0 and 65535.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid client log level",
		Detail:   "clientLogLevel must be one of: silent, error, warn, info, debug.",
	},

	// Resolution and channel errors (E201-E299)
	"E201": {
		Category: CategoryResolution,
		Message:  "Malformed public host",
		Detail:   "The public host override must have the shape hostname[:port][/path].",
	},
	"E202": {
		Category: CategoryChannel,
		Message:  "Server failed to bind",
		Detail:   "The signalling server could not listen on the configured address.",
	},

	// Build runner errors (E301-E399)
	"E301": {
		Category: CategoryBuild,
		Message:  "Build command failed to start",
		Detail:   "The configured build command could not be executed.",
	},
}
