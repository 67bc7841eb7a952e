package cmd

import (
	"go.uber.org/zap"

	"github.com/cchalm/workspace-fs/internal/config"
)

var (
	cfg    = config.Config{}
	logger = zap.NewNop()
)

var flags struct {
	workspace string
	logLevel  string
}
