// Package problem decides whether a detected inconsistency gets repaired.
//
// Every repair the checker can make has a Kind with a statically declared
// default answer, so a pass can always run unattended. How the default is
// used depends on the Mode: interactive runs ask on a terminal, batch runs
// answer from the mode alone.
package problem

import (
	"fmt"
	"strings"
)

// Kind identifies one class of repair.
type Kind int

const (
	DirentLength Kind = iota
	DuplicateDot
	MissingDots
	BadDotInode
	DotTooBig
	ZeroLengthName
	BadNameChars
	InodeOutOfRange
	InodeUnused
	BadFileType
	DuplicateParent

	kindCount
)

// Answer is the statically configured default of a Kind.
type Answer bool

const (
	DefaultNo  Answer = false
	DefaultYes Answer = true
)

type kindInfo struct {
	name string
	def  Answer
}

var kinds = [kindCount]kindInfo{
	DirentLength:    {"DIRENT_LENGTH", DefaultYes},
	DuplicateDot:    {"DIRENT_DUPLICATE_DOTS", DefaultYes},
	MissingDots:     {"DIRENT_DOTS", DefaultYes},
	BadDotInode:     {"DIRENT_DOT_INODE", DefaultYes},
	DotTooBig:       {"DIRENT_DOT_EXCESS", DefaultNo},
	ZeroLengthName:  {"DIRENT_ZERO", DefaultYes},
	BadNameChars:    {"DIRENT_NAME_CHARS", DefaultYes},
	InodeOutOfRange: {"DIRENT_INODE_RANGE", DefaultYes},
	InodeUnused:     {"DIRENT_INODE_FREE", DefaultYes},
	BadFileType:     {"DIRENT_TYPE", DefaultYes},
	DuplicateParent: {"DIR_PARENT_DUP", DefaultNo},
}

// Kinds returns every defined Kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("UNKNOWN_PROBLEM(%d)", int(k))
	}
	return kinds[k].name
}

// Default returns the statically configured answer for k.
func (k Kind) Default() Answer {
	if k < 0 || k >= kindCount {
		return DefaultNo
	}
	return kinds[k].def
}

// Mode selects how fix decisions are made.
type Mode int

const (
	// ModeInteractive asks on the terminal, offering the default.
	ModeInteractive Mode = iota
	// ModeYes answers yes to every question.
	ModeYes
	// ModeNo answers no to every question. Nothing is modified.
	ModeNo
	// ModePreen answers every question with its default.
	ModePreen
)

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "interactive", "":
		return ModeInteractive, nil
	case "yes", "y":
		return ModeYes, nil
	case "no", "n":
		return ModeNo, nil
	case "preen", "p":
		return ModePreen, nil
	default:
		return ModeInteractive, fmt.Errorf("unknown fix mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeInteractive:
		return "interactive"
	case ModeYes:
		return "yes"
	case ModeNo:
		return "no"
	case ModePreen:
		return "preen"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Decide is the pure decision function. It returns the answer for kind
// under mode and whether a human must be asked to confirm it. When ask is
// true the returned answer is the default to offer.
func Decide(kind Kind, def Answer, mode Mode) (fix bool, ask bool) {
	switch mode {
	case ModeYes:
		return true, false
	case ModeNo:
		return false, false
	case ModeInteractive:
		return bool(def), true
	default:
		return bool(def), false
	}
}
