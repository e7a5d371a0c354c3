package serialmux

import (
	"context"

	"github.com/banshee-data/robot.sensors/internal/monitoring"
)

// HandleLine logs controller output that is not a normal reply. ERR lines
// are logged too since the caller that triggered them may already have
// given up waiting.
func HandleLine(line string) {
	switch ClassifyLine(line) {
	case ReplyError:
		monitoring.Logf("controller error: %s", line)
	case ReplyUnknown:
		monitoring.Logf("controller: %s", line)
	default:
		monitoring.Debugf("controller reply: %s", line)
	}
}

// LogLines subscribes to mux and passes every line to HandleLine until ctx
// is done or the mux closes.
func LogLines(ctx context.Context, mux SerialMuxInterface) {
	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-ch:
			if !ok {
				return
			}
			HandleLine(line)
		}
	}
}
