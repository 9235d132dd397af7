// Package logging builds the terminal logger used by the relicpool command.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mborders/logmatic"
)

// ErrInvalidLevel indicates the level string is not recognized.
var ErrInvalidLevel = errors.New("logging: invalid level")

// New returns a logger filtering below level. Accepted levels are trace,
// debug, info, warn and error; empty means info.
func New(level string) (*logmatic.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := logmatic.NewLogger()
	l.SetLevel(lvl)
	return l, nil
}

// ParseLevel maps a level name to its logmatic level.
func ParseLevel(level string) (logmatic.LogLevel, error) {
	switch strings.ToLower(level) {
	case "trace":
		return logmatic.TRACE, nil
	case "debug":
		return logmatic.DEBUG, nil
	case "info", "":
		return logmatic.INFO, nil
	case "warn":
		return logmatic.WARN, nil
	case "error":
		return logmatic.ERROR, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
}
