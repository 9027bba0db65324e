package logger

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/modelgateway/pkg/configs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	applicationName string = "modelgateway"
	hostname        string = "-"
	pid             int    = os.Getpid()
)

// app time [host:pid] LEVEL message
const (
	logTemplate string = "%s %v [%s:%d] %s %s"
	timeLayout  string = "02-01-2006 15:04:05.000 -0700"
)

func InitLogger(configs *configs.AppConfigs) {
	logLevel := strings.ToUpper(configs.Configs.ApplicationLogLevel)
	if configs.Configs.ApplicationName != "" {
		applicationName = configs.Configs.ApplicationName
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		hostname = host
	}
	switch logLevel {
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "INFO":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "FATAL":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "PANIC":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "DISABLED":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		Panic(fmt.Sprintf("Incorrect log level %s", logLevel), nil)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	Info("Logger initialized!")
}

func Debug(message string) {
	log.Debug().Msg(line("DEBUG", message))
}

func Info(message string) {
	log.Info().Msg(line("INFO", message))
}

func Warn(message string) {
	log.Warn().Msg(line("WARN", message))
}

func Error(message string, err error) {
	log.Error().AnErr("Error ", err).Msg(line("ERROR", message))
}

func PercentError(message string, err error, loggingPercent int) {
	if loggingPercent == 0 {
		loggingPercent = 10
	}
	randomNumber := rand.Intn(100) + 1
	if randomNumber <= loggingPercent {
		Error(message, err)
	}
}

func Panic(message string, err error) {
	Error(message, err)
	log.Panic().AnErr("Error", err).Msg(line("PANIC", message))
}

func line(level, message string) string {
	return fmt.Sprintf(logTemplate, applicationName, time.Now().Format(timeLayout), hostname, pid, level, message)
}
