package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"switchback-market-lab/internal/domain"
)

func validConfig() *Config {
	cfg := &Config{
		PopulationSize: 100,
		Valuation:      Valuation{Low: 2, High: 14},
		Patience:       Patience{Min: 0, Max: 5},
		Inventory:      Inventory{Unlimited: true},
		Experiment:     Experiment{PriceLow: 6, PriceMid: 8, PriceHigh: 10},
		Horizon:        200,
		Seed:           42,
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestApplyDefaults_FillsPolicyFields(t *testing.T) {
	cfg := validConfig()

	if cfg.ConsumerPolicy != domain.ConsumerForwardLooking {
		t.Errorf("expected forward-looking default, got %s", cfg.ConsumerPolicy)
	}
	if cfg.AllocationRule != domain.AllocationFIFO {
		t.Errorf("expected fifo default, got %s", cfg.AllocationRule)
	}
	if cfg.StockoutPolicy != domain.StockoutLostSales {
		t.Errorf("expected lost-sales default, got %s", cfg.StockoutPolicy)
	}
	if cfg.PatienceOnStockout != domain.PatienceConsume {
		t.Errorf("expected consume default, got %s", cfg.PatienceOnStockout)
	}
	if cfg.DiscountFactor != 1.0 || cfg.AvailabilityBelief != 1.0 {
		t.Errorf("expected unit discount and availability defaults, got %f / %f",
			cfg.DiscountFactor, cfg.AvailabilityBelief)
	}

	sum := cfg.Experiment.ProbHigh + cfg.Experiment.ProbMid + cfg.Experiment.ProbLow
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("default probabilities must sum to 1, got %f", sum)
	}
}

func TestValidate_RejectsUnequalSpacing(t *testing.T) {
	cfg := validConfig()
	cfg.Experiment.PriceMid = 7 // spacing 1 vs 3

	err := cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "experiment" {
		t.Errorf("expected experiment field, got %s", verr.Field)
	}
}

func TestValidate_RejectsUnorderedLevels(t *testing.T) {
	cfg := validConfig()
	cfg.Experiment.PriceLow = 12

	if cfg.Validate() == nil {
		t.Error("expected error for low >= mid")
	}
}

func TestValidate_RejectsBadProbabilities(t *testing.T) {
	cfg := validConfig()
	cfg.Experiment.ProbHigh = 0.5
	cfg.Experiment.ProbMid = 0.5
	cfg.Experiment.ProbLow = 0.5

	if cfg.Validate() == nil {
		t.Error("expected error for probabilities summing past 1")
	}

	cfg = validConfig()
	cfg.Experiment.ProbHigh = 1.0
	cfg.Experiment.ProbMid = 0.0
	cfg.Experiment.ProbLow = 0.0
	if cfg.Validate() == nil {
		t.Error("expected error for a zero-probability arm")
	}
}

func TestValidate_RejectsBadDelta(t *testing.T) {
	cfg := validConfig()
	cfg.Experiment.Delta = 1.0

	if cfg.Validate() == nil {
		t.Error("expected error for delta outside [0, 1)")
	}
}

func TestValidate_RejectsUnknownEnums(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"consumer_policy", func(c *Config) { c.ConsumerPolicy = "psychic" }},
		{"allocation_rule", func(c *Config) { c.AllocationRule = "lottery" }},
		{"stockout_policy", func(c *Config) { c.StockoutPolicy = "ration" }},
		{"patience_on_stockout", func(c *Config) { c.PatienceOnStockout = "forever" }},
		{"arrival.process", func(c *Config) { c.Arrival.Process = "teleport" }},
	}

	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)

		err := cfg.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
			continue
		}
		if verr.Field != tc.name {
			t.Errorf("expected field %s, got %s", tc.name, verr.Field)
		}
	}
}

func TestValidate_ConstantArrivalsNeedRate(t *testing.T) {
	cfg := validConfig()
	cfg.Arrival.Process = ArrivalConstant
	cfg.Arrival.RatePerPeriod = 0

	if cfg.Validate() == nil {
		t.Error("expected error for constant arrivals without a rate")
	}

	cfg.Arrival.RatePerPeriod = 3
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidate_RejectsBadDiscountFactor(t *testing.T) {
	cfg := validConfig()
	cfg.DiscountFactor = 1.5

	if cfg.Validate() == nil {
		t.Error("expected error for discount factor above 1")
	}
}

func TestLoad_YAMLRoundTrip(t *testing.T) {
	yaml := `
population_size: 50
valuation:
  low: 2
  high: 14
patience:
  min: 0
  max: 3
inventory:
  starting_stock: 30
  reorder_point: 5
  reorder_quantity: 20
  lead_time: 2
  holding_cost_rate: 0.1
experiment:
  price_low: 6
  price_mid: 8
  price_high: 10
  delta: 0.01
marginal_cost: 3
horizon: 300
seed: 7
consumer_policy: myopic
stockout_policy: backorder
true_gradient: -1.5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}

	if cfg.PopulationSize != 50 || cfg.Inventory.StartingStock != 30 {
		t.Errorf("fields not parsed: pop=%d stock=%d", cfg.PopulationSize, cfg.Inventory.StartingStock)
	}
	if cfg.ConsumerPolicy != domain.ConsumerMyopic {
		t.Errorf("expected myopic policy, got %s", cfg.ConsumerPolicy)
	}
	if cfg.StockoutPolicy != domain.StockoutBackorder {
		t.Errorf("expected backorder policy, got %s", cfg.StockoutPolicy)
	}
	if cfg.TrueGradient == nil || *cfg.TrueGradient != -1.5 {
		t.Errorf("expected true gradient -1.5, got %v", cfg.TrueGradient)
	}
	// Defaults fill what the file omits.
	if cfg.AllocationRule != domain.AllocationFIFO {
		t.Errorf("expected fifo default, got %s", cfg.AllocationRule)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFingerprint_SensitiveToOutcomeFields(t *testing.T) {
	a := validConfig()
	b := validConfig()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical configs must share a fingerprint")
	}

	b.Experiment.PriceMid = 7.5
	b.Experiment.PriceLow = 5 // keep spacing valid
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("price change must alter the fingerprint")
	}
}
