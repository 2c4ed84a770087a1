package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

const activityTimeLayout = "2006-01-02 15:04:05"

// ActivityCore appends one human readable line per entry:
//
//	[2024-01-15 10:30:00] [INFO] [203.0.113.7] Submission saved
type ActivityCore struct {
	zapcore.LevelEnabler

	mu     *sync.Mutex
	file   *os.File
	fields []zapcore.Field
}

func NewActivityCore(path string, enab zapcore.LevelEnabler) (*ActivityCore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create activity log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	return &ActivityCore{
		LevelEnabler: enab,
		mu:           &sync.Mutex{},
		file:         f,
	}, nil
}

func (c *ActivityCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	return &clone
}

func (c *ActivityCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ActivityCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ip := "-"
	for _, f := range append(c.fields, fields...) {
		if f.Key == clientIP && f.Type == zapcore.StringType && f.String != "" {
			ip = f.String
		}
	}

	line := formatActivityLine(ent, ip)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.file.WriteString(line)
	return err
}

func (c *ActivityCore) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Sync()
}

func (c *ActivityCore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

func formatActivityLine(ent zapcore.Entry, ip string) string {
	msg := strings.ReplaceAll(ent.Message, "\n", " ")
	return fmt.Sprintf("[%s] [%s] [%s] %s\n",
		ent.Time.Format(activityTimeLayout), ent.Level.CapitalString(), ip, msg)
}
