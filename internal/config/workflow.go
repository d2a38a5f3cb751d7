package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// WorkflowConfig carries review-queue presentation thresholds. Records
// pending longer than WarnAfterDays are flagged in listings, and longer
// than EscalateAfterDays are surfaced to administrators. The thresholds
// never gate a transition.
type WorkflowConfig struct {
	WarnAfterDays     int `mapstructure:"warnAfterDays" json:"warn_after_days"`
	EscalateAfterDays int `mapstructure:"escalateAfterDays" json:"escalate_after_days"`
}

func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		WarnAfterDays:     2,
		EscalateAfterDays: 4,
	}
}

type WorkflowConfigHolder struct {
	current atomic.Value // holds WorkflowConfig
}

func NewWorkflowConfigHolder(log *zap.Logger) (*WorkflowConfigHolder, error) {
	log = log.Named("workflow.config")
	v := viper.New()

	v.SetConfigName("workflow")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/cadastre/config") // Volume-mounted config
	v.AddConfigPath("/etc/cadastre")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("CADASTRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultWorkflowConfig()
		v.SetDefault("workflow.warnAfterDays", defaults.WarnAfterDays)
		v.SetDefault("workflow.escalateAfterDays", defaults.EscalateAfterDays)
	}

	var cfg WorkflowConfig
	if err := v.UnmarshalKey("workflow", &cfg); err != nil {
		return nil, err
	}
	if err := validateWorkflowConfig(cfg); err != nil {
		return nil, err
	}

	holder := &WorkflowConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated WorkflowConfig
		if err := v.UnmarshalKey("workflow", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateWorkflowConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded",
			zap.String("file", e.Name),
			zap.Int("warn_after_days", updated.WarnAfterDays),
			zap.Int("escalate_after_days", updated.EscalateAfterDays),
		)
	})

	return holder, nil
}

func (h *WorkflowConfigHolder) Get() WorkflowConfig {
	return h.current.Load().(WorkflowConfig)
}

func validateWorkflowConfig(cfg WorkflowConfig) error {
	if cfg.WarnAfterDays <= 0 {
		return errors.New("workflow.warnAfterDays must be positive")
	}
	if cfg.EscalateAfterDays < cfg.WarnAfterDays {
		return errors.New("workflow.escalateAfterDays cannot be below warnAfterDays")
	}
	return nil
}
