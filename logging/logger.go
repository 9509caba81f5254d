package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

func BootstrapLogger(level string) {
	Log = &logrus.Logger{
		Out:   os.Stdout,
		Hooks: make(logrus.LevelHooks),
		Formatter: &logrus.TextFormatter{
			DisableColors: false,
			DisableQuote:  false,
			FullTimestamp: true,
		},
		ReportCaller: true,
		Level:        logrus.DebugLevel,
		ExitFunc:     os.Exit,
	}

	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		Log.Warnf("unknown log level %q, keeping debug", level)
		return
	}
	Log.SetLevel(parsed)
}
