package serialmux

import (
	"fmt"
	"strconv"
	"strings"
)

// Reply kinds sent by the robot controller. Each reply is one line whose
// first token is the kind, followed by space separated values.
const (
	ReplyAnalog  = "A"   // A <front> <left> <right> <battery>
	ReplyGround  = "G"   // G <mask>
	ReplyCompass = "C"   // C <degrees>
	ReplyPose    = "P"   // P <x> <y> <theta>
	ReplyBeacon  = "B"   // B <0|1>
	ReplyOK      = "OK"  // acknowledgement of EN, DIS and S
	ReplyError   = "ERR" // ERR <message>
	ReplyUnknown = "unknown"
)

var replyKinds = map[string]bool{
	ReplyAnalog:  true,
	ReplyGround:  true,
	ReplyCompass: true,
	ReplyPose:    true,
	ReplyBeacon:  true,
	ReplyOK:      true,
	ReplyError:   true,
}

// Reply is one parsed controller line.
type Reply struct {
	Kind   string
	Fields []string
}

// ClassifyLine returns the reply kind of a raw line, or ReplyUnknown for
// anything else the controller prints (boot banners, debug output).
func ClassifyLine(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 || !replyKinds[fields[0]] {
		return ReplyUnknown
	}
	return fields[0]
}

// ParseReply splits a reply line into its kind and value fields.
func ParseReply(line string) (Reply, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Reply{}, fmt.Errorf("empty reply")
	}
	if !replyKinds[fields[0]] {
		return Reply{}, fmt.Errorf("unknown reply %q", line)
	}
	return Reply{Kind: fields[0], Fields: fields[1:]}, nil
}

// Ints parses exactly n integer fields.
func (r Reply) Ints(n int) ([]int, error) {
	if len(r.Fields) != n {
		return nil, fmt.Errorf("%s reply: want %d fields, got %d", r.Kind, n, len(r.Fields))
	}
	out := make([]int, n)
	for i, f := range r.Fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%s reply field %d: %w", r.Kind, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Floats parses exactly n floating point fields.
func (r Reply) Floats(n int) ([]float64, error) {
	if len(r.Fields) != n {
		return nil, fmt.Errorf("%s reply: want %d fields, got %d", r.Kind, n, len(r.Fields))
	}
	out := make([]float64, n)
	for i, f := range r.Fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%s reply field %d: %w", r.Kind, i, err)
		}
		out[i] = v
	}
	return out, nil
}
