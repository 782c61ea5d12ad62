package domain

// AllocationRule decides which buyers are served when requested sales
// exceed available inventory.
type AllocationRule string

const (
	// AllocationFIFO serves earlier arrival cohorts first, index order
	// within a cohort. Default.
	AllocationFIFO AllocationRule = "fifo"
	// AllocationValuation serves higher valuations first, index tie-break.
	AllocationValuation AllocationRule = "valuation"
)

// StockoutPolicy fixes what happens to demand the ledger cannot fill.
type StockoutPolicy string

const (
	// StockoutLostSales drops unfilled demand. Default.
	StockoutLostSales StockoutPolicy = "lost"
	// StockoutBackorder commits unfilled buyers at their decision-period
	// price and serves them FIFO as stock arrives.
	StockoutBackorder StockoutPolicy = "backorder"
)

// PatiencePolicy fixes whether a failed purchase attempt under stockout
// consumes patience.
type PatiencePolicy string

const (
	// PatienceConsume keeps the unserved consumer active but burns the
	// period against its patience. Default.
	PatienceConsume PatiencePolicy = "consume"
	// PatienceExit makes unserved consumers leave immediately.
	PatienceExit PatiencePolicy = "exit"
)

// ConsumerPolicy selects the population's decision rule.
type ConsumerPolicy string

const (
	ConsumerMyopic         ConsumerPolicy = "myopic"
	ConsumerForwardLooking ConsumerPolicy = "forward"
	ConsumerInfiniteHz     ConsumerPolicy = "infinite"
)
