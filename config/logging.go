package config

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogWriter returns the sink selected by LOG_OUTPUT. File output is rotated.
// The sink is built once so every logger shares a single rotator per file.
func (c *LoggingConfig) LogWriter() io.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writer == nil {
		c.writer = c.newWriter()
	}
	return c.writer
}

func (c *LoggingConfig) newWriter() io.Writer {
	switch c.Output {
	case "file":
		return c.rotator()
	case "both":
		return io.MultiWriter(os.Stdout, c.rotator())
	default:
		return os.Stdout
	}
}

func (c *LoggingConfig) rotator() *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}
