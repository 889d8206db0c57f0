package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Channel 日志通道
type Channel string

const (
	// ChannelSystem 系统日志：连接、同步、错误
	ChannelSystem Channel = "system"
	// ChannelTransaction 交易日志：订单事件、成交、盈亏
	ChannelTransaction Channel = "transaction"
	// ChannelAction 动作日志：agent 的决策与执行
	ChannelAction Channel = "action"
)

var (
	// Logger 系统日志实例（同时设置为 logrus 全局输出）
	Logger *logrus.Logger

	transactionLogger = newConsoleLogger(logrus.InfoLevel)
	actionLogger      = newConsoleLogger(logrus.InfoLevel)

	logFiles = map[Channel]string{}
	logMu    sync.Mutex
)

// Config 日志配置
type Config struct {
	Level      string // 日志级别: debug, info, warn, error
	Dir        string // 日志目录（为空则只输出到控制台）
	MaxSize    int    // 单个日志文件最大大小（MB）
	MaxBackups int    // 保留的旧日志文件数量
	MaxAge     int    // 保留旧日志文件的天数
	Compress   bool   // 是否压缩旧日志文件
	NoConsole  bool   // 不输出到控制台
}

func newFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05", // 格式: yy-mm-dd HH:MM:ss
		ForceColors:     true,
	}
}

func newConsoleLogger(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(newFormatter())
	l.SetOutput(os.Stdout)
	return l
}

// channelWriter 控制台 + 按通道切分的滚动文件
func channelWriter(config Config, ch Channel) (io.Writer, string, error) {
	var writers []io.Writer
	if !config.NoConsole {
		writers = append(writers, os.Stdout)
	}
	path := ""
	if config.Dir != "" {
		if err := os.MkdirAll(config.Dir, 0o755); err != nil {
			return nil, "", err
		}
		path = filepath.Join(config.Dir, string(ch)+".log")
		writers = append(writers, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}
	if len(writers) == 0 {
		return io.Discard, path, nil
	}
	return io.MultiWriter(writers...), path, nil
}

// Init 初始化三个日志通道
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	files := map[Channel]string{}
	loggers := map[Channel]*logrus.Logger{}
	for _, ch := range []Channel{ChannelSystem, ChannelTransaction, ChannelAction} {
		w, path, err := channelWriter(config, ch)
		if err != nil {
			return err
		}
		l := logrus.New()
		l.SetLevel(level)
		l.SetFormatter(newFormatter())
		l.SetOutput(w)
		loggers[ch] = l
		files[ch] = path
	}

	// 系统通道同时作为 logrus 全局输出，各组件的 logrus.WithField(...) 都会写入 system.log
	system := loggers[ChannelSystem]
	logrus.SetOutput(system.Out)
	logrus.SetLevel(level)
	logrus.SetFormatter(newFormatter())

	Logger = system
	transactionLogger = loggers[ChannelTransaction]
	actionLogger = loggers[ChannelAction]
	logFiles = files
	return nil
}

// InitDefault 使用默认配置初始化日志系统
func InitDefault() error {
	return Init(Config{
		Level:      "info",
		Dir:        "logs",
		MaxSize:    100, // 100MB
		MaxBackups: 3,
		MaxAge:     7, // 7天
		Compress:   true,
	})
}

// Transaction 交易日志通道
func Transaction() *logrus.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	return transactionLogger
}

// Action 动作日志通道
func Action() *logrus.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	return actionLogger
}

// FileOf 返回通道对应的日志文件路径（未配置目录时为空）
func FileOf(ch Channel) string {
	logMu.Lock()
	defer logMu.Unlock()
	return logFiles[ch]
}

// Debug 记录 DEBUG 级别日志
func Debug(args ...interface{}) {
	if Logger != nil {
		Logger.Debug(args...)
	}
}

// Debugf 记录格式化的 DEBUG 级别日志
func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

// Info 记录 INFO 级别日志
func Info(args ...interface{}) {
	if Logger != nil {
		Logger.Info(args...)
	}
}

// Infof 记录格式化的 INFO 级别日志
func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

// Warnf 记录格式化的 WARN 级别日志
func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

// Errorf 记录格式化的 ERROR 级别日志
func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Errorf(format, args...)
	}
}

// WithField 添加字段到日志上下文
func WithField(key string, value interface{}) *logrus.Entry {
	if Logger != nil {
		return Logger.WithField(key, value)
	}
	return logrus.WithField(key, value)
}
