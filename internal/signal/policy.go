package signal

// Action is what the page should do in response to a compilation event.
type Action int

const (
	ActionNone Action = iota
	ActionReload
	ActionHotUpdate
)

func (a Action) String() string {
	switch a {
	case ActionReload:
		return "reload"
	case ActionHotUpdate:
		return "hot-update"
	}
	return "none"
}

// PolicyOptions are the client-side flags the policy decides against.
type PolicyOptions struct {
	Hot        bool
	LiveReload bool
	LogLevel   LogLevel
}

// LogSink receives policy log lines. The line ordering across
// asynchronous events is unspecified; consumers should not depend on it.
type LogSink func(level LogLevel, line string)

// Policy interprets compilation events: it decides the page action and
// emits log lines gated by the configured level. It is a pure decision
// function over the event and the three flags; the only side effect is
// the sink.
type Policy struct {
	opts PolicyOptions
	sink LogSink
}

// NewPolicy creates a policy. A nil sink discards all log output.
func NewPolicy(opts PolicyOptions, sink LogSink) *Policy {
	if sink == nil {
		sink = func(LogLevel, string) {}
	}
	return &Policy{opts: opts, sink: sink}
}

// Apply decides the action for one event and logs it. Warnings and errors
// are always logged unless the level is silent; everything else respects
// the level ordering. A build with warnings still counts as a successful
// build, so it triggers the same action as ok.
func (p *Policy) Apply(ev Event) Action {
	switch ev.Type {
	case EventInvalid:
		p.log(LogInfo, "App updated. Recompiling...")
		return ActionNone

	case EventStillOk:
		p.log(LogInfo, "Nothing changed.")
		return ActionNone

	case EventOk:
		return p.applyUpdate()

	case EventWarnings:
		p.logAlways(LogWarn, "Warnings while compiling.")
		for _, line := range ev.Data {
			p.logAlways(LogWarn, line)
		}
		return p.applyUpdate()

	case EventErrors:
		p.logAlways(LogError, "Errors while compiling. Reload prevented.")
		for _, line := range ev.Data {
			p.logAlways(LogError, line)
		}
		return ActionNone
	}

	p.log(LogDebug, "Ignoring unknown event "+string(ev.Type))
	return ActionNone
}

// applyUpdate picks the action for a successful build.
func (p *Policy) applyUpdate() Action {
	switch {
	case p.opts.Hot:
		p.log(LogInfo, "App updated. Applying hot update...")
		return ActionHotUpdate
	case p.opts.LiveReload:
		p.log(LogInfo, "App updated. Reloading...")
		return ActionReload
	default:
		p.log(LogInfo, "App updated.")
		return ActionNone
	}
}

// log emits a line subject to the configured level.
func (p *Policy) log(level LogLevel, line string) {
	if p.opts.LogLevel.Allows(level) {
		p.sink(level, line)
	}
}

// logAlways emits a line at any level other than silent.
func (p *Policy) logAlways(level LogLevel, line string) {
	if p.opts.LogLevel != LogSilent {
		p.sink(level, line)
	}
}
