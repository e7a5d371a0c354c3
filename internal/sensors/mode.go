package sensors

import (
	"fmt"
	"strings"
)

// Mode selects which optional channels are read in a tick.
type Mode int

const (
	ModeDefault Mode = iota
	ModeSearchingForBeacon
	ModeSearchingForBeaconArea
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "DEFAULT"
	case ModeSearchingForBeacon:
		return "SEARCHING_FOR_BEACON"
	case ModeSearchingForBeaconArea:
		return "SEARCHING_FOR_BEACON_AREA"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	return m >= ModeDefault && m <= ModeSearchingForBeaconArea
}

// ParseMode converts a mode name into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEFAULT", "":
		return ModeDefault, nil
	case "SEARCHING_FOR_BEACON", "BEACON":
		return ModeSearchingForBeacon, nil
	case "SEARCHING_FOR_BEACON_AREA", "BEACON_AREA":
		return ModeSearchingForBeaconArea, nil
	default:
		return ModeDefault, fmt.Errorf("unknown mode %q", value)
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("cannot encode invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText allows modes to be loaded from names in JSON and flags.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Channels lists which optional hardware channels a tick reads. Pose,
// compass, obstacle and battery channels are read on every tick.
type Channels struct {
	Ground bool
	Beacon bool
}

var modeChannels = map[Mode]Channels{
	ModeDefault:                {Ground: true},
	ModeSearchingForBeacon:     {Ground: true, Beacon: true},
	ModeSearchingForBeaconArea: {Ground: true},
}

// Channels returns the optional channels read in mode m. Unknown modes read
// the same channels as ModeDefault.
func (m Mode) Channels() Channels {
	if ch, ok := modeChannels[m]; ok {
		return ch
	}
	return modeChannels[ModeDefault]
}
