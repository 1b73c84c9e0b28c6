package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const FieldSeparator = "#"

var (
	escaper = strings.NewReplacer(
		"#", "<num>",
		"%", "<percent>",
		"$", "<dollar>",
		"&", "<and>",
	)
	unescaper = strings.NewReplacer(
		"<num>", "#",
		"<percent>", "%",
		"<dollar>", "$",
		"<and>", "&",
	)
)

func Escape(s string) string {
	return escaper.Replace(s)
}

func Unescape(s string) string {
	return unescaper.Replace(s)
}

// Raw is a field that is already encoded, like an `&` joined list entry.
type Raw string

type Packet struct {
	Command string
	Args    []string
}

func (p Packet) String() string {
	return string(Encode(p.Command, stringsToFields(p.Args)...))
}

func stringsToFields(args []string) []interface{} {
	fields := make([]interface{}, len(args))
	for i, arg := range args {
		fields[i] = arg
	}
	return fields
}

// ParseFrame turns one delimited frame into a packet, decrypting the keyword
// when the frame uses the legacy cipher. It reports false for frames that
// cannot carry a command.
func ParseFrame(frame string) (Packet, bool) {
	if len(frame) < 2 {
		return Packet{}, false
	}

	switch frame[0] {
	case '#', '3', '4':
		frame = strings.TrimPrefix(frame, "#")
		keyword, rest, hasRest := strings.Cut(frame, FieldSeparator)
		decrypted, ok := FantaDecrypt(keyword)
		if !ok {
			return Packet{}, false
		}
		frame = decrypted
		if hasRest {
			frame += FieldSeparator + rest
		}
	}

	fields := strings.Split(frame, FieldSeparator)
	if fields[0] == "" {
		return Packet{}, false
	}

	args := fields[1:]
	// The legacy askchar2 frame ends with a separator that carries nothing.
	if len(args) == 1 && args[0] == "" {
		args = nil
	}
	for i, arg := range args {
		args[i] = Unescape(arg)
	}

	return Packet{Command: fields[0], Args: args}, true
}

func formatField(field interface{}) string {
	switch v := field.(type) {
	case Raw:
		return string(v)
	case string:
		return Escape(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return Escape(v.String())
	default:
		return Escape(fmt.Sprint(v))
	}
}

// Encode builds a complete outbound frame including the delimiter.
func Encode(command string, fields ...interface{}) []byte {
	var out strings.Builder
	out.WriteString(command)
	for _, field := range fields {
		out.WriteString(FieldSeparator)
		out.WriteString(formatField(field))
	}
	out.WriteString(Delimiter)
	return []byte(out.String())
}
