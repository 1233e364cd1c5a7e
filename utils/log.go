package utils

import (
	"fmt"
	"io"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// NewLogger creates the logger used by the command line application.
// Debug mode lowers the level to debug and reports the caller of every entry.
func NewLogger(w io.Writer, debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)

	if debug {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetReportCaller(true)
	}

	logger.SetFormatter(&formatter.Formatter{
		NoColors:        false,
		TimestampFormat: "15:04:05.000",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
		},
	})

	return logger
}
