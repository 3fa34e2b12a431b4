package agentfs

import "github.com/mwantia/agentfs/log"

type CompositeOptions struct {
	Name          string
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool
}

type CompositeOption func(*CompositeOptions) error

func newDefaultCompositeOptions() *CompositeOptions {
	return &CompositeOptions{
		Name:     "composite",
		LogLevel: log.Info,
	}
}

func WithName(name string) CompositeOption {
	return func(opts *CompositeOptions) error {
		opts.Name = name
		return nil
	}
}

func WithLogLevel(logLevel log.LogLevel) CompositeOption {
	return func(opts *CompositeOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithLogFile(logFile string) CompositeOption {
	return func(opts *CompositeOptions) error {
		opts.LogFile = logFile
		return nil
	}
}

func WithoutTerminalLog() CompositeOption {
	return func(opts *CompositeOptions) error {
		opts.NoTerminalLog = true
		return nil
	}
}
