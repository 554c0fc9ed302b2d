package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/memo"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/config"
)

// BuildEngines creates one matching engine per enabled source retailer.
// Two sources stamping the same retailer name share an engine.
func BuildEngines(cfg *config.Config) ([]reconcile.Engine, error) {
	matchCfg, err := MatcherConfig(cfg.Matching)
	if err != nil {
		return nil, err
	}
	memoOpts := memo.Options{IncludeOrderLink: cfg.Memo.IncludeOrderLink}
	heuristic := processed.NewContentHeuristic(cfg.Memo.MaxMemoLength, cfg.Memo.ExtraMarkers...)

	var specs []model.RetailerSpec
	if cfg.Sources.Amazon.Enabled {
		specs = append(specs, RetailerSpec(cfg.Sources.Amazon.Retailer, model.DefaultAmazonSpec()))
	}
	if cfg.Sources.CSV.Enabled {
		specs = append(specs, RetailerSpec(cfg.Sources.CSV.Retailer, model.RetailerSpec{}))
	}

	seen := make(map[string]bool)
	engines := make([]reconcile.Engine, 0, len(specs))
	for _, spec := range specs {
		key := strings.ToLower(spec.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		engines = append(engines, reconcile.NewEngine(spec, matchCfg, memoOpts, heuristic))
	}
	return engines, nil
}

// RetailerSpec overlays configured values on base. A retailer without any
// alias is matched by its lowercased name.
func RetailerSpec(rc config.RetailerConfig, base model.RetailerSpec) model.RetailerSpec {
	spec := base
	if rc.Name != "" {
		spec.Name = rc.Name
	}
	if len(rc.PayeeAliases) > 0 {
		spec.PayeeAliases = rc.PayeeAliases
	}
	if len(rc.PayeeBlacklist) > 0 {
		spec.PayeeBlacklist = rc.PayeeBlacklist
	}
	if len(rc.SubscriptionPrefixes) > 0 {
		spec.SubscriptionPrefixes = rc.SubscriptionPrefixes
	}
	if len(rc.DecorativeSuffixes) > 0 {
		spec.DecorativeSuffixes = rc.DecorativeSuffixes
	}
	if len(spec.PayeeAliases) == 0 && spec.Name != "" {
		spec.PayeeAliases = []string{strings.ToLower(spec.Name)}
	}
	return spec
}

// MatcherConfig converts the matching section; zero values keep the
// matcher defaults.
func MatcherConfig(mc config.MatchingConfig) (matcher.Config, error) {
	out := matcher.DefaultConfig()
	if mc.AmountTolerance != "" {
		tol, err := decimal.NewFromString(mc.AmountTolerance)
		if err != nil {
			return matcher.Config{}, fmt.Errorf("invalid matching.amount_tolerance %q: %w", mc.AmountTolerance, err)
		}
		if tol.IsNegative() {
			return matcher.Config{}, fmt.Errorf("matching.amount_tolerance must not be negative")
		}
		out.AmountTolerance = tol
	}
	if mc.DateCeilingDays > 0 {
		out.DateCeiling = mc.DateCeilingDays
	}
	if mc.DateDecayDays > 0 {
		out.DateDecay = mc.DateDecayDays
	}
	if mc.MinConfidence > 0 {
		out.MinConfidence = mc.MinConfidence
	}
	if mc.GroupMaxSize > 0 {
		out.GroupMaxSize = mc.GroupMaxSize
	}
	if mc.GroupWindowDays > 0 {
		out.GroupWindowDays = mc.GroupWindowDays
	}
	return out, nil
}
