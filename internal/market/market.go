// Package market drives the simulation loop. Each period it publishes the
// firm's price, exposes availability, collects consumer decisions, clears
// transactions against the inventory ledger, and appends one immutable
// period record. The market exclusively owns the panel and the clock.
package market

import (
	"context"
	"log"
	"math"
	"math/rand"

	"switchback-market-lab/internal/config"
	"switchback-market-lab/internal/consumer"
	"switchback-market-lab/internal/domain"
	"switchback-market-lab/internal/firm"
	"switchback-market-lab/internal/inventory"
)

// State is the market lifecycle state.
type State string

// Market states.
const (
	StateInit    State = "init"
	StateRunning State = "running"
	StateClosed  State = "closed"
)

// backorder is an unserved buyer committed at its decision-period price,
// awaiting stock. Only used under the backorder stockout policy.
type backorder struct {
	consumer *domain.ConsumerState
	price    float64
	period   int
}

// Options contains everything a market needs. All collaborators are passed
// explicitly; the market reads no ambient state.
type Options struct {
	RunID   string
	Horizon int

	Pricing firm.PricingPolicy
	Decider consumer.Decider
	Ledger  *inventory.Ledger
	Belief  consumer.Belief

	DiscountFactor float64
	// MarginalCost prices both units sold and replenishment orders in
	// producer surplus.
	MarginalCost float64

	AllocationRule     domain.AllocationRule
	StockoutPolicy     domain.StockoutPolicy
	PatienceOnStockout domain.PatiencePolicy

	InitialConsumers []*domain.ConsumerState
	// Arrivals, when set, supplies consumers entering at periods > 0.
	Arrivals func(period, activeCount int, recentAvgDemand float64) []*domain.ConsumerState
	// GrowthWindow sizes the recent-demand average fed to Arrivals.
	GrowthWindow int

	Verbose bool
}

// Market is the per-run orchestrator.
type Market struct {
	opts  Options
	state State
	clock int

	active   []*domain.ConsumerState
	archived []*domain.ConsumerState
	queue    []backorder

	panel []*domain.PeriodRecord

	consumerSurplus float64
	producerSurplus float64
	unitsSold       int
	served          int
	departed        int

	recentDemand []int
}

// New creates a market in its initial state.
func New(opts Options) *Market {
	window := opts.GrowthWindow
	if window <= 0 {
		window = 1
	}
	m := &Market{
		opts:         opts,
		state:        StateInit,
		recentDemand: make([]int, window),
	}
	m.active = append(m.active, opts.InitialConsumers...)
	return m
}

// FromConfig composes a market from a validated configuration: seeded
// population, switchback firm, ledger, and decision policy.
func FromConfig(cfg *config.Config, runID string) (*Market, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	decider, err := consumer.FromPolicy(cfg.ConsumerPolicy)
	if err != nil {
		return nil, err
	}

	// Distinct streams: the population draw and the price schedule draw
	// must not interleave, or changing the horizon would reshuffle
	// valuations.
	popRng := rand.New(rand.NewSource(cfg.Seed))
	pop := newPopulation(cfg, popRng)

	pricing := firm.NewExperimenting(firm.ExperimentingOptions{
		Levels:                cfg.Levels(),
		Probs:                 cfg.ArmProbs(),
		Delta:                 cfg.Experiment.Delta,
		MinInventoryThreshold: cfg.Experiment.MinInventoryThreshold,
		Seed:                  cfg.Seed + 1,
		Horizon:               cfg.Horizon,
	})

	ledger := inventory.NewLedger(inventory.Options{
		StartingStock:   cfg.Inventory.StartingStock,
		ReorderPoint:    cfg.Inventory.ReorderPoint,
		ReorderQuantity: cfg.Inventory.ReorderQuantity,
		LeadTime:        cfg.Inventory.LeadTime,
		HoldingCostRate: cfg.Inventory.HoldingCostRate,
		Unlimited:       cfg.Inventory.Unlimited,
	})

	belief := consumer.Belief{
		Levels:           cfg.Levels(),
		Probs:            cfg.ArmProbs(),
		AvailabilityProb: cfg.AvailabilityBelief,
		DiscountFactor:   cfg.DiscountFactor,
	}

	return New(Options{
		RunID:              runID,
		Horizon:            cfg.Horizon,
		Pricing:            pricing,
		Decider:            decider,
		Ledger:             ledger,
		Belief:             belief,
		DiscountFactor:     cfg.DiscountFactor,
		MarginalCost:       cfg.MarginalCost,
		AllocationRule:     cfg.AllocationRule,
		StockoutPolicy:     cfg.StockoutPolicy,
		PatienceOnStockout: cfg.PatienceOnStockout,
		InitialConsumers:   pop.initial(),
		Arrivals:           pop.arrivals,
		GrowthWindow:       cfg.Arrival.Window,
	}), nil
}

// State returns the lifecycle state.
func (m *Market) State() State { return m.state }

// SetVerbose toggles per-period progress logging.
func (m *Market) SetVerbose(v bool) { m.opts.Verbose = v }

// Run executes every period up to the horizon and closes the market.
// A run either completes its full horizon or is aborted wholesale.
func (m *Market) Run(ctx context.Context) (*domain.RunResult, error) {
	if m.state == StateClosed {
		return m.Result(), nil
	}
	m.state = StateRunning

	for t := 0; t < m.opts.Horizon; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.runPeriod(t); err != nil {
			return nil, err
		}
		m.clock = t + 1
	}

	m.state = StateClosed
	return m.Result(), nil
}

// runPeriod executes one period in the fixed clearing order:
//  1. apply in-transit arrivals due this period
//  2. firm announces price; ledger reports availability
//  3. new consumers enter; every active consumer decides
//  4. clear requested quantity against the ledger
//  5. allocate scarce units; update consumer statuses
//  6. reorder, accrue holding cost
//  7. append the period record
func (m *Market) runPeriod(t int) error {
	ledger := m.opts.Ledger

	ledger.Receive(t)
	onHand := ledger.OnHand()

	price, arm := m.opts.Pricing.Post(t, onHand)
	available := ledger.Unlimited() || onHand > 0

	// New cohort enters before decisions so it can transact same-day.
	if t > 0 && m.opts.Arrivals != nil {
		entrants := m.opts.Arrivals(t, len(m.active), m.recentAvg())
		m.active = append(m.active, entrants...)
	}

	var buyers, waiters, leavers []*domain.ConsumerState
	latentDemand := 0
	for _, c := range m.active {
		if c.Status != domain.StatusActive {
			return &InvariantError{t, "absorbed consumer still in active set"}
		}

		in := consumer.DecisionInput{
			Period:            t,
			Price:             price,
			Available:         available,
			RemainingPatience: c.RemainingPatience(t),
			Valuation:         c.Valuation,
			Belief:            m.opts.Belief,
		}
		switch m.opts.Decider.Decide(in) {
		case consumer.DecisionBuy:
			buyers = append(buyers, c)
		case consumer.DecisionWait:
			waiters = append(waiters, c)
		default:
			leavers = append(leavers, c)
		}

		// An empty shelf blocks the buy branch, which would leave the
		// ledger seeing zero demand. Re-evaluate as if stock were on hand
		// so turned-away buyers still count toward requested units and the
		// period is flagged as censored.
		if !available {
			in.Available = true
			if m.opts.Decider.Decide(in) == consumer.DecisionBuy {
				latentDemand++
			}
		}
	}

	requestedNew := len(buyers) + latentDemand
	requestedTotal := requestedNew + len(m.queue)

	availability := onHand
	if ledger.Unlimited() {
		availability = requestedTotal
	}

	soldTotal, stockout, err := ledger.Clear(t, requestedTotal)
	if err != nil {
		return err
	}

	var revenue float64
	var csIncr float64
	sameDay := 0
	totalSales := 0

	// Backordered buyers are served first, FIFO, at their commitment
	// price. They never count as same-day sales.
	backlogServed := min(len(m.queue), soldTotal)
	for i := 0; i < backlogServed; i++ {
		bo := m.queue[i]
		if err := bo.consumer.Absorb(domain.StatusPurchased); err != nil {
			return &InvariantError{t, err.Error()}
		}
		bo.consumer.PurchasePeriod = t
		bo.consumer.PurchasePrice = bo.price
		csIncr += m.discount(t-bo.consumer.ArrivalPeriod) * (bo.consumer.Valuation - bo.price)
		revenue += bo.price
		totalSales++
		m.served++
	}
	m.queue = m.queue[backlogServed:]

	soldNew := soldTotal - backlogServed
	servedBuyers, unservedBuyers := allocate(buyers, soldNew, m.opts.AllocationRule)

	for _, c := range servedBuyers {
		if err := c.Absorb(domain.StatusPurchased); err != nil {
			return &InvariantError{t, err.Error()}
		}
		c.PurchasePeriod = t
		c.PurchasePrice = price
		csIncr += m.discount(t-c.ArrivalPeriod) * (c.Valuation - price)
		revenue += price
		if c.ArrivalPeriod == t {
			sameDay++
		}
		totalSales++
		m.served++
	}

	// Unserved buyers: fate depends on the stockout policy.
	stillActive := make(map[int]bool, len(waiters)+len(unservedBuyers))
	for _, c := range waiters {
		stillActive[c.Index] = true
	}

	for _, c := range unservedBuyers {
		switch m.opts.StockoutPolicy {
		case domain.StockoutBackorder:
			// Committed at today's price; leaves the deciding population.
			m.queue = append(m.queue, backorder{consumer: c, price: price, period: t})
		default: // lost sales
			if m.opts.PatienceOnStockout == domain.PatienceExit {
				if err := c.Absorb(domain.StatusDeparted); err != nil {
					return &InvariantError{t, err.Error()}
				}
				m.departed++
			} else if c.RemainingPatience(t) <= 0 {
				// The failed attempt consumed the last period.
				if err := c.Absorb(domain.StatusDeparted); err != nil {
					return &InvariantError{t, err.Error()}
				}
				m.departed++
			} else {
				stillActive[c.Index] = true
			}
		}
	}

	for _, c := range leavers {
		if err := c.Absorb(domain.StatusDeparted); err != nil {
			return &InvariantError{t, err.Error()}
		}
		m.departed++
	}

	// Rebuild the active set preserving arrival order.
	next := m.active[:0]
	for _, c := range m.active {
		if c.Status == domain.StatusActive && stillActive[c.Index] {
			next = append(next, c)
		} else if c.Status != domain.StatusActive {
			m.archived = append(m.archived, c)
		}
	}
	m.active = next

	ordered := ledger.MaybeReorder(t)
	productionCost := float64(totalSales) * m.opts.MarginalCost
	replenishmentCost := float64(ordered) * m.opts.MarginalCost
	holdingCost := ledger.HoldingCost()

	psIncr := revenue - productionCost - replenishmentCost - holdingCost

	m.consumerSurplus += csIncr
	m.producerSurplus += psIncr
	m.unitsSold += totalSales
	m.pushDemand(requestedNew)

	m.panel = append(m.panel, &domain.PeriodRecord{
		RunID:                    m.opts.RunID,
		PeriodIndex:              t,
		Arm:                      arm,
		Price:                    price,
		UnitsSoldSameDay:         sameDay,
		UnitsSoldTotal:           totalSales,
		RequestedUnits:           requestedTotal,
		Availability:             availability,
		StockoutFlag:             stockout,
		ConsumerSurplusIncrement: csIncr,
		ProducerSurplusIncrement: psIncr,
	})

	if m.opts.Verbose {
		log.Printf("[market] period=%d arm=%s price=%.2f requested=%d sold=%d stockout=%t active=%d",
			t, arm, price, requestedTotal, totalSales, stockout, len(m.active))
	}
	return nil
}

// discount returns delta^wait.
func (m *Market) discount(wait int) float64 {
	if wait <= 0 {
		return 1
	}
	return math.Pow(m.opts.DiscountFactor, float64(wait))
}

func (m *Market) pushDemand(d int) {
	copy(m.recentDemand, m.recentDemand[1:])
	m.recentDemand[len(m.recentDemand)-1] = d
}

func (m *Market) recentAvg() float64 {
	sum := 0
	for _, d := range m.recentDemand {
		sum += d
	}
	return float64(sum) / float64(len(m.recentDemand))
}

// Result exposes the finalized run output. Valid once closed; the panel is
// append-only and safe to hand out as a read-only snapshot.
func (m *Market) Result() *domain.RunResult {
	return &domain.RunResult{
		RunID:             m.opts.RunID,
		Horizon:           m.opts.Horizon,
		Panel:             m.panel,
		ConsumerSurplus:   m.consumerSurplus,
		ProducerSurplus:   m.producerSurplus,
		UnitsSold:         m.unitsSold,
		StockoutPeriods:   m.opts.Ledger.StockoutCount(),
		ConsumersServed:   m.served,
		ConsumersDeparted: m.departed,
	}
}
