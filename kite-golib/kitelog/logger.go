package kitelog

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
)

var flags = log.LstdFlags | log.Lshortfile | log.Lmicroseconds

// Basic logs to stderr
var Basic = &Logger{
	Default: log.New(os.Stderr, "", flags),
}

// Discard drops everything logged to it
var Discard = &Logger{
	Default: log.New(ioutil.Discard, "", 0),
}

// New creates a Logger writing to w, prefixing each line with prefix
func New(w io.Writer, prefix string) *Logger {
	return &Logger{
		Default: log.New(w, prefix, flags),
	}
}

// Logger encapsulates multiple logging handlers
type Logger struct {
	Default   *log.Logger
	Durations Durations
}

// Interface encapsulates the relevant methods of log.Logger
type Interface interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

// Printf implements Interface
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Default.Output(2, fmt.Sprintf(format, v...))
}

// Println implements Interface
func (l *Logger) Println(v ...interface{}) {
	l.Default.Output(2, fmt.Sprintln(v...))
}
