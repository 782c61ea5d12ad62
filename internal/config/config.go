// Package config loads and validates experiment configuration.
// All validation happens before a run starts; a run never begins with an
// invalid parameter combination.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"switchback-market-lab/internal/domain"
)

// ValidationError reports an invalid configuration field. Fatal: raised
// before simulation start, never recovered.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Valuation is the consumer valuation distribution: uniform on [Low, High],
// or the point Low when High == Low (or High omitted).
type Valuation struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Patience is the consumer patience distribution: uniform integer on
// [Min, Max], or fixed Min when Max == Min (or omitted).
type Patience struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Arrival configures how consumers enter the market.
type Arrival struct {
	// Process: "all_at_start" (default), "constant", or "growth".
	Process string `yaml:"process"`

	// RatePerPeriod applies to "constant": consumers entering each period.
	RatePerPeriod int `yaml:"rate_per_period"`

	// Demand-linked growth ("growth"): population grows by
	// base + (recent demand ratio - 0.1) * 0.5, clamped to [min, max],
	// averaged over Window periods.
	BaseGrowthRate float64 `yaml:"base_growth_rate"`
	MaxGrowthRate  float64 `yaml:"max_growth_rate"`
	MinGrowthRate  float64 `yaml:"min_growth_rate"`
	Window         int     `yaml:"window"`
}

// Arrival process names.
const (
	ArrivalAllAtStart = "all_at_start"
	ArrivalConstant   = "constant"
	ArrivalGrowth     = "growth"
)

// Inventory configures the firm's ledger.
type Inventory struct {
	StartingStock   int     `yaml:"starting_stock"`
	ReorderPoint    int     `yaml:"reorder_point"`
	ReorderQuantity int     `yaml:"reorder_quantity"`
	LeadTime        int     `yaml:"lead_time"`
	HoldingCostRate float64 `yaml:"holding_cost_rate"`

	// Unlimited disables the inventory constraint entirely.
	Unlimited bool `yaml:"unlimited"`
}

// Experiment configures the switchback design.
type Experiment struct {
	PriceLow  float64 `yaml:"price_low"`
	PriceMid  float64 `yaml:"price_mid"`
	PriceHigh float64 `yaml:"price_high"`

	// Arm assignment probabilities in (high, mid, low) order.
	// Default balanced (1/3 each).
	ProbHigh float64 `yaml:"prob_high"`
	ProbMid  float64 `yaml:"prob_mid"`
	ProbLow  float64 `yaml:"prob_low"`

	// Delta is the per-period probability the experiment ends; afterwards
	// the firm posts the reference (high) price. Default 0.
	Delta float64 `yaml:"delta"`

	// MinInventoryThreshold suppresses discount arms when pre-period
	// on-hand stock falls below it. 0 disables.
	MinInventoryThreshold int `yaml:"min_inventory_threshold"`
}

// Config is the full experiment configuration surface.
type Config struct {
	PopulationSize int       `yaml:"population_size"`
	Valuation      Valuation `yaml:"valuation"`
	Patience       Patience  `yaml:"patience"`
	Arrival        Arrival   `yaml:"arrival"`

	Inventory    Inventory  `yaml:"inventory"`
	Experiment   Experiment `yaml:"experiment"`
	MarginalCost float64    `yaml:"marginal_cost"`

	Horizon        int     `yaml:"horizon"`
	Seed           int64   `yaml:"seed"`
	DiscountFactor float64 `yaml:"discount_factor"`

	// AvailabilityBelief is the probability consumers assign to stock
	// being on hand in a future period. Logically global to all consumers
	// in a period; passed explicitly into decisions. Default 1.
	AvailabilityBelief float64 `yaml:"availability_belief"`

	ConsumerPolicy     domain.ConsumerPolicy `yaml:"consumer_policy"`
	AllocationRule     domain.AllocationRule `yaml:"allocation_rule"`
	StockoutPolicy     domain.StockoutPolicy `yaml:"stockout_policy"`
	PatienceOnStockout domain.PatiencePolicy `yaml:"patience_on_stockout"`

	// TrueGradient, when set, lets the sweep report estimator bias against
	// the known demand slope of the configured population.
	TrueGradient *float64 `yaml:"true_gradient"`
}

// Load reads config from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Arrival.Process == "" {
		c.Arrival.Process = ArrivalAllAtStart
	}
	if c.Arrival.Window == 0 {
		c.Arrival.Window = 3
	}
	if c.Experiment.ProbHigh == 0 && c.Experiment.ProbMid == 0 && c.Experiment.ProbLow == 0 {
		c.Experiment.ProbHigh = 1.0 / 3.0
		c.Experiment.ProbMid = 1.0 / 3.0
		c.Experiment.ProbLow = 1.0 / 3.0
	}
	if c.DiscountFactor == 0 {
		c.DiscountFactor = 1.0
	}
	if c.AvailabilityBelief == 0 {
		c.AvailabilityBelief = 1.0
	}
	if c.ConsumerPolicy == "" {
		c.ConsumerPolicy = domain.ConsumerForwardLooking
	}
	if c.AllocationRule == "" {
		c.AllocationRule = domain.AllocationFIFO
	}
	if c.StockoutPolicy == "" {
		c.StockoutPolicy = domain.StockoutLostSales
	}
	if c.PatienceOnStockout == "" {
		c.PatienceOnStockout = domain.PatienceConsume
	}
}

// spacingTolerance bounds floating error when checking equal level spacing.
const spacingTolerance = 1e-9

// Validate checks every invariant the core depends on.
func (c *Config) Validate() error {
	if c.PopulationSize <= 0 {
		return &ValidationError{"population_size", "must be > 0"}
	}
	if c.Horizon < 1 {
		return &ValidationError{"horizon", "must be >= 1"}
	}
	if c.Valuation.High != 0 && c.Valuation.High < c.Valuation.Low {
		return &ValidationError{"valuation", "high must be >= low"}
	}
	if c.Patience.Min < 0 {
		return &ValidationError{"patience.min", "must be >= 0"}
	}
	if c.Patience.Max != 0 && c.Patience.Max < c.Patience.Min {
		return &ValidationError{"patience", "max must be >= min"}
	}

	e := c.Experiment
	if !(e.PriceLow < e.PriceMid && e.PriceMid < e.PriceHigh) {
		return &ValidationError{"experiment", "price levels must satisfy low < mid < high"}
	}
	if math.Abs((e.PriceMid-e.PriceLow)-(e.PriceHigh-e.PriceMid)) > spacingTolerance {
		return &ValidationError{"experiment", "price levels must be equally spaced for the three-point estimator"}
	}
	probSum := e.ProbHigh + e.ProbMid + e.ProbLow
	if math.Abs(probSum-1.0) > spacingTolerance {
		return &ValidationError{"experiment", fmt.Sprintf("arm probabilities must sum to 1, got %g", probSum)}
	}
	if e.ProbHigh <= 0 || e.ProbMid <= 0 || e.ProbLow <= 0 {
		return &ValidationError{"experiment", "arm probabilities must be positive"}
	}
	if e.Delta < 0 || e.Delta >= 1 {
		return &ValidationError{"experiment.delta", "must be in [0, 1)"}
	}
	if e.MinInventoryThreshold < 0 {
		return &ValidationError{"experiment.min_inventory_threshold", "must be >= 0"}
	}

	inv := c.Inventory
	if inv.StartingStock < 0 {
		return &ValidationError{"inventory.starting_stock", "must be >= 0"}
	}
	if inv.ReorderPoint < 0 {
		return &ValidationError{"inventory.reorder_point", "must be >= 0"}
	}
	if inv.ReorderQuantity < 0 {
		return &ValidationError{"inventory.reorder_quantity", "must be >= 0"}
	}
	if inv.LeadTime < 0 {
		return &ValidationError{"inventory.lead_time", "must be >= 0"}
	}
	if inv.HoldingCostRate < 0 {
		return &ValidationError{"inventory.holding_cost_rate", "must be >= 0"}
	}
	if c.MarginalCost < 0 {
		return &ValidationError{"marginal_cost", "must be >= 0"}
	}

	if c.DiscountFactor <= 0 || c.DiscountFactor > 1 {
		return &ValidationError{"discount_factor", "must be in (0, 1]"}
	}
	if c.AvailabilityBelief < 0 || c.AvailabilityBelief > 1 {
		return &ValidationError{"availability_belief", "must be in [0, 1]"}
	}

	switch c.Arrival.Process {
	case ArrivalAllAtStart:
	case ArrivalConstant:
		if c.Arrival.RatePerPeriod <= 0 {
			return &ValidationError{"arrival.rate_per_period", "must be > 0 for constant arrivals"}
		}
	case ArrivalGrowth:
		if c.Arrival.Window <= 0 {
			return &ValidationError{"arrival.window", "must be > 0 for growth arrivals"}
		}
	default:
		return &ValidationError{"arrival.process", fmt.Sprintf("unknown process %q", c.Arrival.Process)}
	}

	switch c.ConsumerPolicy {
	case domain.ConsumerMyopic, domain.ConsumerForwardLooking, domain.ConsumerInfiniteHz:
	default:
		return &ValidationError{"consumer_policy", fmt.Sprintf("unknown policy %q", c.ConsumerPolicy)}
	}
	switch c.AllocationRule {
	case domain.AllocationFIFO, domain.AllocationValuation:
	default:
		return &ValidationError{"allocation_rule", fmt.Sprintf("unknown rule %q", c.AllocationRule)}
	}
	switch c.StockoutPolicy {
	case domain.StockoutLostSales, domain.StockoutBackorder:
	default:
		return &ValidationError{"stockout_policy", fmt.Sprintf("unknown policy %q", c.StockoutPolicy)}
	}
	switch c.PatienceOnStockout {
	case domain.PatienceConsume, domain.PatienceExit:
	default:
		return &ValidationError{"patience_on_stockout", fmt.Sprintf("unknown policy %q", c.PatienceOnStockout)}
	}

	return nil
}

// Levels returns the configured price levels.
func (c *Config) Levels() domain.PriceLevels {
	return domain.PriceLevels{
		Low:  c.Experiment.PriceLow,
		Mid:  c.Experiment.PriceMid,
		High: c.Experiment.PriceHigh,
	}
}

// ArmProbs returns assignment probabilities in (high, mid, low) order.
func (c *Config) ArmProbs() [3]float64 {
	return [3]float64{c.Experiment.ProbHigh, c.Experiment.ProbMid, c.Experiment.ProbLow}
}

// Fingerprint serializes the fields that determine a run's outcome.
// Used for deterministic run IDs.
func (c *Config) Fingerprint() string {
	return fmt.Sprintf("pop=%d|v=%g-%g|pat=%d-%d|arr=%s:%d|inv=%d/%d/%d/%d/%g/%t|px=%g/%g/%g|q=%g/%g/%g|delta=%g|thr=%d|mc=%g|h=%d|df=%g|cp=%s|alloc=%s|so=%s|pos=%s",
		c.PopulationSize, c.Valuation.Low, c.Valuation.High,
		c.Patience.Min, c.Patience.Max,
		c.Arrival.Process, c.Arrival.RatePerPeriod,
		c.Inventory.StartingStock, c.Inventory.ReorderPoint, c.Inventory.ReorderQuantity,
		c.Inventory.LeadTime, c.Inventory.HoldingCostRate, c.Inventory.Unlimited,
		c.Experiment.PriceLow, c.Experiment.PriceMid, c.Experiment.PriceHigh,
		c.Experiment.ProbHigh, c.Experiment.ProbMid, c.Experiment.ProbLow,
		c.Experiment.Delta, c.Experiment.MinInventoryThreshold,
		c.MarginalCost, c.Horizon, c.DiscountFactor,
		c.ConsumerPolicy, c.AllocationRule, c.StockoutPolicy, c.PatienceOnStockout,
	)
}
