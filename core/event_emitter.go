package voice

import "github.com/koscakluka/ema-ivr/core/events"

func emitterOrNoop(handler events.Handler) events.Handler {
	if handler == nil {
		return events.Noop
	}
	return handler
}
