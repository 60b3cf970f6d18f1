package main

import (
	"github.com/spf13/cobra"

	"github.com/five82/taper/internal/config"
)

// commandContext carries lazily-loaded configuration shared by all commands.
type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	cfg        *config.Config
	configPath string
	fromFile   bool
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, verboseFlag: verboseFlag}
}

// ensureConfig loads and validates configuration once per invocation.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, path, fromFile, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	if *c.verboseFlag {
		cfg.Logging.Verbose = true
	}
	c.cfg = cfg
	c.configPath = path
	c.fromFile = fromFile
	return cfg, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	return cmd.Annotations["skipConfigLoad"] == "true"
}
