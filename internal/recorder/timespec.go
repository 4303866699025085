package recorder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyTimeSpec marks an empty or whitespace-only time spec. It means "no
// time requested", which callers must treat differently from a malformed one.
var ErrEmptyTimeSpec = errors.New("time spec is empty")

// ParseTimeSpec converts "2:30", "02:30", "1:02:03" or plain "150" into a
// number of seconds. It is a pure function; range checks (negative offsets)
// belong to the caller.
func ParseTimeSpec(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmptyTimeSpec
	}

	if strings.Contains(text, ":") {
		parts := strings.Split(text, ":")
		switch len(parts) {
		case 2: // mm:ss
			m, err := parseComponent(parts[0], text)
			if err != nil {
				return 0, err
			}
			s, err := parseComponent(parts[1], text)
			if err != nil {
				return 0, err
			}
			return m*60 + s, nil
		case 3: // hh:mm:ss
			h, err := parseComponent(parts[0], text)
			if err != nil {
				return 0, err
			}
			m, err := parseComponent(parts[1], text)
			if err != nil {
				return 0, err
			}
			s, err := parseComponent(parts[2], text)
			if err != nil {
				return 0, err
			}
			return h*3600 + m*60 + s, nil
		default:
			return 0, ValidationError{
				Field:   "time",
				Message: fmt.Sprintf("%q must be mm:ss or hh:mm:ss", text),
			}
		}
	}

	seconds, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, ValidationError{
			Field:   "time",
			Message: fmt.Sprintf("%q is not a number of seconds", text),
		}
	}
	return seconds, nil
}

func parseComponent(part, whole string) (float64, error) {
	value, err := strconv.ParseFloat(part, 64)
	if err != nil {
		return 0, ValidationError{
			Field:   "time",
			Message: fmt.Sprintf("%q has a non-numeric component %q", whole, part),
		}
	}
	return value, nil
}
