package protocol

import (
	"strconv"

	"github.com/cfoust/courtroom/pkg/failure"
)

type ArgType uint8

const (
	// Str must be non-empty.
	Str ArgType = iota
	StrOrEmpty
	Int
)

// Signature declares the arguments a keyword accepts.
type Signature struct {
	Types []ArgType
	// Extra fields beyond Types are accepted and left unvalidated.
	Variadic bool
	// Auth requires the connection to have completed the handshake.
	Auth bool
}

func Sig(types ...ArgType) Signature {
	return Signature{Types: types, Auth: true}
}

// Unauthed lets the keyword through before the handshake.
func (s Signature) Unauthed() Signature {
	s.Auth = false
	return s
}

func (s Signature) WithExtra() Signature {
	s.Variadic = true
	return s
}

// Args are validated packet fields.
type Args []string

func (a Args) Str(i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	return a[i]
}

// Int returns field i as an integer, or 0 when it is missing or malformed.
func (a Args) Int(i int) int {
	value, err := strconv.Atoi(a.Str(i))
	if err != nil {
		return 0
	}
	return value
}

func (a Args) Has(i int) bool {
	return i >= 0 && i < len(a)
}

func (s Signature) Validate(args []string, authed bool) (Args, error) {
	if s.Auth && !authed {
		return nil, failure.Protocol("keyword requires handshake")
	}
	if len(args) < len(s.Types) || (!s.Variadic && len(args) != len(s.Types)) {
		return nil, failure.Protocol("expected %d fields, got %d", len(s.Types), len(args))
	}

	for i, typ := range s.Types {
		arg := args[i]
		if arg == "" && typ != StrOrEmpty {
			return nil, failure.Protocol("field %d is empty", i)
		}
		if typ == Int {
			if _, err := strconv.Atoi(arg); err != nil {
				return nil, failure.Protocol("field %d is not a number", i)
			}
		}
	}

	return Args(args), nil
}
