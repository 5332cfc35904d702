package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/verification"
	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ToleranceConfig is the verification section of verification.yml.
type ToleranceConfig struct {
	ReclassifyRelativeTolerance string `mapstructure:"reclassifyRelativeTolerance"`
	NetToleranceMultiplier      string `mapstructure:"netToleranceMultiplier"`
}

func DefaultToleranceConfig() ToleranceConfig {
	return ToleranceConfig{
		ReclassifyRelativeTolerance: verification.DefaultReclassifyRelativeTolerance.String(),
		NetToleranceMultiplier:      verification.DefaultNetToleranceMultiplier.String(),
	}
}

// Apply overlays the tolerances on base, leaving its precision alone.
func (t ToleranceConfig) Apply(base verification.Config) (verification.Config, error) {
	rel, err := decimal.NewFromString(strings.TrimSpace(t.ReclassifyRelativeTolerance))
	if err != nil {
		return base, fmt.Errorf("invalid reclassifyRelativeTolerance %q: %w", t.ReclassifyRelativeTolerance, err)
	}
	mult, err := decimal.NewFromString(strings.TrimSpace(t.NetToleranceMultiplier))
	if err != nil {
		return base, fmt.Errorf("invalid netToleranceMultiplier %q: %w", t.NetToleranceMultiplier, err)
	}
	base.ReclassifyRelativeTolerance = rel
	base.NetToleranceMultiplier = mult
	if err := base.Validate(); err != nil {
		return base, err
	}
	return base, nil
}

// ToleranceHolder keeps the current verification config and swaps it when
// the backing file changes.
type ToleranceHolder struct {
	v       *viper.Viper
	current atomic.Value // holds verification.Config
	logger  *zap.Logger
	found   bool
}

// LoadTolerances reads verification.yml from file, or from ./configs and .
// when file is empty. A missing file in the search paths yields defaults.
func LoadTolerances(file string, logger *zap.Logger) (*ToleranceHolder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("verification")
		v.SetConfigType("yml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TAXCALC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultToleranceConfig()
	v.SetDefault("verification.reclassifyRelativeTolerance", defaults.ReclassifyRelativeTolerance)
	v.SetDefault("verification.netToleranceMultiplier", defaults.NetToleranceMultiplier)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read tolerance config: %w", err)
		}
		found = false
	}

	cfg, err := decodeTolerances(v)
	if err != nil {
		return nil, err
	}

	h := &ToleranceHolder{v: v, logger: logger, found: found}
	h.current.Store(cfg)
	return h, nil
}

// Watch reloads the tolerances whenever the config file changes. Invalid
// updates are logged and ignored.
func (h *ToleranceHolder) Watch() {
	if !h.found {
		return
	}
	h.v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeTolerances(h.v)
		if err != nil {
			h.logger.Warn("tolerance config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		h.current.Store(updated)
		h.logger.Info("tolerance config reloaded",
			zap.String("file", e.Name),
			zap.String("reclassify_relative_tolerance", updated.ReclassifyRelativeTolerance.String()),
			zap.String("net_tolerance_multiplier", updated.NetToleranceMultiplier.String()),
		)
	})
	h.v.WatchConfig()
}

// Current returns the verification config at the default precision.
func (h *ToleranceHolder) Current() verification.Config {
	return h.current.Load().(verification.Config)
}

// ConfigFileUsed is empty when defaults are in effect.
func (h *ToleranceHolder) ConfigFileUsed() string {
	if !h.found {
		return ""
	}
	return h.v.ConfigFileUsed()
}

func decodeTolerances(v *viper.Viper) (verification.Config, error) {
	var tc ToleranceConfig
	if err := v.UnmarshalKey("verification", &tc); err != nil {
		return verification.Config{}, fmt.Errorf("failed to decode tolerance config: %w", err)
	}
	return tc.Apply(verification.DefaultConfig())
}
