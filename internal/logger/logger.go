// 包 logger：统一初始化批处理工具的日志器；级别与格式由环境变量控制，各阶段共享同一输出
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// 进程级日志器，两个阶段在同一进程内运行时共用
var defaultLogger *slog.Logger

// Setup：按 LOG_LEVEL / LOG_FORMAT 构建日志器并附带工具名
// 约束：输出固定为标准错误；标准输出留给可能的管道使用
func Setup(tool string) *slog.Logger {
	lvl := parseLevel(os.Getenv("LOG_LEVEL"))
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	l := slog.New(h)
	if tool != "" {
		l = l.With("tool", tool)
	}
	defaultLogger = l
	return defaultLogger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// L：获取默认日志器；未初始化时按默认配置构建
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup("")
	}
	return defaultLogger
}
