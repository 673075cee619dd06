// Package log is the leveled logger of oppctl. Messages go to a stdlib
// logger, one line each, tagged with their level; a minimum level drops
// the quieter ones.
package log

import (
	"fmt"
	"log"
	"os"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
	LevelFatal
)

var levelTags = [...]string{
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelTags) {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelTags[l]
}

// Logger is what the oppctl packages log through.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	// Fatalf exits the process with status 1 after logging.
	Fatalf(format string, args ...interface{})
}

// Std writes to Out the messages at or above Min.
type Std struct {
	Out *log.Logger
	Min Level
}

var _ Logger = (*Std)(nil)

// New logs every level to out.
func New(out *log.Logger) *Std {
	return &Std{Out: out}
}

var exit = os.Exit

func (s *Std) emit(lv Level, format string, args []interface{}) {
	if lv < s.Min && lv < LevelFatal {
		return
	}
	s.Out.Printf("%-5s %s", lv, fmt.Sprintf(format, args...))
}

func (s *Std) Infof(format string, args ...interface{})  { s.emit(LevelInfo, format, args) }
func (s *Std) Warnf(format string, args ...interface{})  { s.emit(LevelWarn, format, args) }
func (s *Std) Errorf(format string, args ...interface{}) { s.emit(LevelError, format, args) }

func (s *Std) Fatalf(format string, args ...interface{}) {
	s.emit(LevelFatal, format, args)
	exit(1)
}

// DefaultLogger is used by every package unless a logger is passed in.
var DefaultLogger Logger = New(log.New(os.Stderr, "oppctl: ", log.LstdFlags))

func Infof(format string, args ...interface{})  { DefaultLogger.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { DefaultLogger.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { DefaultLogger.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { DefaultLogger.Fatalf(format, args...) }
