package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/referrals/internal/workflow"
)

const (
	EnvWorkflowMaxFixAttempts   = "REFERRALS_MAX_FIX_ATTEMPTS"
	EnvWorkflowStageTimeout     = "REFERRALS_STAGE_TIMEOUT"
	EnvWorkflowRequester        = "REFERRALS_REQUESTER"
	EnvWorkflowBatchConcurrency = "REFERRALS_BATCH_CONCURRENCY"
)

// WorkflowConfig bounds a single run and a batch of runs.
type WorkflowConfig struct {
	MaxFixAttempts   int    `toml:"max_fix_attempts"`
	StageTimeout     string `toml:"stage_timeout"`
	Requester        string `toml:"requester"`
	BatchConcurrency int    `toml:"batch_concurrency"`
}

// StageTimeoutDuration returns StageTimeout as a time.Duration.
func (c *WorkflowConfig) StageTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StageTimeout)
	return d
}

func (c *WorkflowConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *WorkflowConfig) Merge(overlay *WorkflowConfig) {
	if overlay.MaxFixAttempts != 0 {
		c.MaxFixAttempts = overlay.MaxFixAttempts
	}
	if overlay.StageTimeout != "" {
		c.StageTimeout = overlay.StageTimeout
	}
	if overlay.Requester != "" {
		c.Requester = overlay.Requester
	}
	if overlay.BatchConcurrency != 0 {
		c.BatchConcurrency = overlay.BatchConcurrency
	}
}

func (c *WorkflowConfig) loadDefaults() {
	if c.MaxFixAttempts == 0 {
		c.MaxFixAttempts = workflow.DefaultMaxFixes
	}
	if c.StageTimeout == "" {
		c.StageTimeout = "2m"
	}
	if c.BatchConcurrency == 0 {
		c.BatchConcurrency = 4
	}
}

func (c *WorkflowConfig) loadEnv() {
	if v := os.Getenv(EnvWorkflowMaxFixAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxFixAttempts = n
		}
	}
	if v := os.Getenv(EnvWorkflowStageTimeout); v != "" {
		c.StageTimeout = v
	}
	if v := os.Getenv(EnvWorkflowRequester); v != "" {
		c.Requester = v
	}
	if v := os.Getenv(EnvWorkflowBatchConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchConcurrency = n
		}
	}
}

func (c *WorkflowConfig) validate() error {
	if c.MaxFixAttempts < 1 || c.MaxFixAttempts > workflow.DefaultMaxFixes {
		return fmt.Errorf("max_fix_attempts must be between 1 and %d: %d", workflow.DefaultMaxFixes, c.MaxFixAttempts)
	}
	if _, err := time.ParseDuration(c.StageTimeout); err != nil {
		return fmt.Errorf("invalid stage_timeout: %w", err)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("batch_concurrency must be positive: %d", c.BatchConcurrency)
	}
	return nil
}
