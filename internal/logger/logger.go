package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultService    = "modamart"
	defaultDir        = "logs"
	defaultFilename   = "modamart.log"
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 7
	defaultMaxAgeDays = 30
)

// Options 日志输出配置
type Options struct {
	Service    string // 每条日志附带的 service 字段
	Level      string // 为空时按运行模式推导
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// L 全局结构化日志实例
var L *zap.Logger

var (
	fallbackOnce sync.Once
	fallbackLog  *zap.Logger
)

// Init 初始化全局日志并替换 zap 全局实例
func Init(mode string, options Options) *zap.Logger {
	L = New(mode, options)
	zap.ReplaceGlobals(L)
	return L
}

// New 创建日志实例。debug 模式只写控制台；release 模式输出 JSON，同时写 stdout 与滚动文件
func New(mode string, options Options) *zap.Logger {
	debug := strings.EqualFold(strings.TrimSpace(mode), "debug")
	level := resolveLevel(debug, options.Level)

	if debug {
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), level)
		return build(core, options.Service)
	}

	sink := zapcore.AddSync(os.Stdout)
	if file, err := rotatingFile(options); err != nil {
		fmt.Fprintf(os.Stderr, "log file unavailable, writing to stdout only: %v\n", err)
	} else {
		sink = zapcore.NewMultiWriteSyncer(sink, file)
	}
	return build(zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, level), options.Service)
}

// For 返回带 component 字段的日志实例（checkout、ledger、settlement 等）
func For(component string) *zap.SugaredLogger {
	return SW("component", component)
}

// Amount 金额字段统一输出两位小数字符串，便于与账本核对
func Amount(key string, amount decimal.Decimal) zap.Field {
	return zap.String(key, amount.StringFixed(2))
}

// StdLogger 返回兼容标准库 log 的 logger
func StdLogger() *log.Logger {
	return zap.NewStdLog(Z())
}

// Z 返回可用的结构化日志实例
func Z() *zap.Logger {
	if L != nil {
		return L
	}
	return fallbackLogger()
}

// S 返回可用的 SugaredLogger
func S() *zap.SugaredLogger {
	return Z().Sugar()
}

// SW 返回带上下文字段的 SugaredLogger
func SW(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return S()
	}
	return S().With(kv...)
}

// Debugw 输出 debug 级别日志
func Debugw(message string, kv ...interface{}) {
	S().Debugw(message, kv...)
}

// Infow 输出 info 级别日志
func Infow(message string, kv ...interface{}) {
	S().Infow(message, kv...)
}

// Warnw 输出 warn 级别日志
func Warnw(message string, kv ...interface{}) {
	S().Warnw(message, kv...)
}

// Errorw 输出 error 级别日志
func Errorw(message string, kv ...interface{}) {
	S().Errorw(message, kv...)
}

// Sync 刷新缓冲日志
func Sync() {
	if L != nil {
		_ = L.Sync()
	}
}

func build(core zapcore.Core, service string) *zap.Logger {
	service = strings.TrimSpace(service)
	if service == "" {
		service = defaultService
	}
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).With(zap.String("service", service))
}

// resolveLevel 显式配置优先；无法解析时回落到模式默认级别
func resolveLevel(debug bool, raw string) zap.AtomicLevel {
	fallback := zapcore.InfoLevel
	if debug {
		fallback = zapcore.DebugLevel
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return zap.NewAtomicLevelAt(fallback)
	}
	parsed, err := zapcore.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zap.NewAtomicLevelAt(fallback)
	}
	return zap.NewAtomicLevelAt(parsed)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func fallbackLogger() *zap.Logger {
	fallbackOnce.Do(func() {
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), zapcore.InfoLevel)
		fallbackLog = build(core, defaultService)
	})
	return fallbackLog
}

func rotatingFile(options Options) (zapcore.WriteSyncer, error) {
	path, err := logFilePath(options.Dir, options.Filename)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    positiveOr(options.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: positiveOr(options.MaxBackups, defaultMaxBackups),
		MaxAge:     positiveOr(options.MaxAgeDays, defaultMaxAgeDays),
		Compress:   options.Compress,
	}), nil
}

// logFilePath 目录为空时使用工作目录下的 logs/，并确认文件可写
func logFilePath(dir, filename string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		workDir, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve workdir: %w", err)
		}
		dir = filepath.Join(workDir, defaultDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = defaultFilename
	}
	path := filepath.Join(dir, filename)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close log file: %w", err)
	}
	return path, nil
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
