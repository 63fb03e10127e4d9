package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFile is where InitLogger writes, relative to the working directory.
const LogFile = "modpack-launcher.log"

var (
	// Log starts as a no-op so packages can log before InitLogger runs (and in tests).
	Log       = zap.NewNop().Sugar()
	ZapLogger *zap.Logger // Expose the raw zap Logger
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "T", // Keep time key brief
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "",              // Disable caller key
		FunctionKey:    zapcore.OmitKey, // Disable function key
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,                        // INFO, WARN, etc.
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"), // Simpler time format
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		// Separator between elements in console output
		ConsoleSeparator: "  ",
	}
}

func InitLogger() {
	logFile, err := os.OpenFile(LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("can't open log file: %v", err)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.AddSync(logFile),
		zap.InfoLevel, // Log InfoLevel and above to file
	)

	ZapLogger = zap.New(core)
	Log = ZapLogger.Sugar()
	Log.Info("Logger initialized, logging to " + LogFile)
}

// Tee additionally mirrors log lines to stderr, used by commands that run
// without a TUI so the user sees progress in the terminal.
func Tee() {
	if ZapLogger == nil {
		return
	}
	stderrCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(os.Stderr),
		zap.InfoLevel,
	)
	ZapLogger = zap.New(zapcore.NewTee(ZapLogger.Core(), stderrCore))
	Log = ZapLogger.Sugar()
}

func Sync() {
	if ZapLogger != nil {
		_ = ZapLogger.Sync() // flushes buffer, if any
	}
}
