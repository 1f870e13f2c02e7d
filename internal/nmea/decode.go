// internal/nmea/decode.go
package nmea

import (
	"errors"
	"strconv"
	"strings"
)

// Command is one inbound command line: <id>,<field>,<field>,...
type Command struct {
	ID     int
	Fields []string
}

// String serializes the command back into its wire form.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Fields)+1)
	parts = append(parts, strconv.Itoa(c.ID))
	parts = append(parts, c.Fields...)
	return strings.Join(parts, ",")
}

// ErrNoFields is wrapped by MalformedCommandError when a command carries an
// identifier but no value.
var ErrNoFields = errors.New("no data fields")

// Decode parses a command line. The first field must be an integer and at
// least one data field must follow it.
func Decode(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")

	parts := strings.Split(line, ",")
	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Command{}, &MalformedCommandError{Line: line, Err: err}
	}
	if len(parts) < 2 {
		return Command{}, &MalformedCommandError{Line: line, Err: ErrNoFields}
	}

	return Command{ID: id, Fields: parts[1:]}, nil
}

// Checksum is the XOR of every byte between the leading '$' and the '*'.
// The leading '$' and anything from '*' on are ignored when present.
func Checksum(sentence string) byte {
	sentence = strings.TrimPrefix(sentence, "$")
	if i := strings.IndexByte(sentence, '*'); i >= 0 {
		sentence = sentence[:i]
	}

	var sum byte
	for i := 0; i < len(sentence); i++ {
		sum ^= sentence[i]
	}
	return sum
}
