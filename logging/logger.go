package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func BoostrapLogger() {
	Log = &logrus.Logger{
		Out: nil,
		Formatter: &logrus.TextFormatter{
			DisableColors: false,
			FullTimestamp: false,
		},
		Level: logrus.DebugLevel,
	}

	// LOG_LEVEL overrides the default debug level in deployed environments
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		Log.Level = lvl
	}

	Log.SetReportCaller(true)
	Log.Out = os.Stdout
}
