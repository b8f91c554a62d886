// Package gen produces synthetic toll transactions for load testing,
// demos, and evaluating the anonymizer against realistic batch shapes.
// Both modes are seeded: the same seed reproduces every field draw, with
// only the minted record ids fresh per run.
package gen

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/tollgate-data/gantryflow/internal/db"
	"github.com/tollgate-data/gantryflow/internal/money"
	"github.com/tollgate-data/gantryflow/internal/vehicle"
)

// Mode selects the sampling strategy.
type Mode string

const (
	// ModeRule draws every field uniformly from its vocabulary.
	ModeRule Mode = "rule"
	// ModeStat draws from empirical distributions observed in production
	// traffic (section frequencies, daytime-weighted hours, class-conditional
	// axle counts).
	ModeStat Mode = "stat"
)

// ParseMode validates a mode string from a flag.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRule, ModeStat:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want rule or stat)", s)
	}
}

// Enum vocabularies from the toll network data dictionary.
var (
	gantryTypes     = []string{"1", "2", "3"}
	mediaTypes      = []string{"1", "2"}
	vehicleSigns    = []string{"0xff", "0x04"}
	passStates      = []string{"1.0", "2.0"}
	laneTypes       = []string{"01", "03"}
	cpuCardTypes    = []string{"", "1.0", "2.0"}
	plateColors     = []string{"0", "1", "2"}
	cardTypes       = []string{"1", "2"}
	payTypes        = []string{"1", "2", "3"}
	discountTypes   = []string{"0", "1"}
	allVehicleTypes = append(vehicle.CoachClasses(), vehicle.TruckClasses()...)
	ruleSectionIDs  = []string{"G5615530120", "S0014530010", "S0010530020", "S0010530010", "G7611530010", "S0071530020", "S0014530030", "S0014530020"}
)

const (
	feeProvBeginHex   = "000000"
	maxPayFeeFen      = int64(20596)
	maxDiscountFen    = int64(4625)
	entranceLeadMin   = 10
	entranceSpreadMin = 170
)

// Generator mints synthetic transaction batches inside a time window.
type Generator struct {
	mode  Mode
	rng   *rand.Rand
	start time.Time
	end   time.Time
	stat  *statSampler // nil in rule mode
}

// New returns a generator for the window [start, end).
func New(mode Mode, seed uint64, start, end time.Time) (*Generator, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("window end %s not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	g := &Generator{
		mode:  mode,
		rng:   rand.New(rand.NewSource(seed)),
		start: start,
		end:   end,
	}
	if mode == ModeStat {
		g.stat = newStatSampler(seed)
	}
	return g, nil
}

func (g *Generator) pick(vocab []string) string {
	return vocab[g.rng.Intn(len(vocab))]
}

// transactionTime draws a timestamp in the window: uniform in rule mode,
// hour-weighted in stat mode.
func (g *Generator) transactionTime() time.Time {
	if g.stat != nil {
		return g.stat.sampleTime(g.start, g.end)
	}
	span := g.end.Sub(g.start)
	return g.start.Add(time.Duration(g.rng.Int63n(int64(span))))
}

func (g *Generator) sectionID() string {
	if g.stat != nil {
		return g.stat.sampleSection()
	}
	return g.pick(ruleSectionIDs)
}

func (g *Generator) vehicleClass() string {
	if g.stat != nil {
		return g.stat.sampleVehicleClass()
	}
	return g.pick(allVehicleTypes)
}

func (g *Generator) axleCount(class string) int {
	if g.stat != nil {
		return g.stat.sampleAxleCount(class)
	}
	return 2 + g.rng.Intn(5) // 2..6
}

// payFeeFen draws a fee in fen: 90% of passages cost at most 5 yuan,
// the long tail runs out to the observed maximum.
func (g *Generator) payFeeFen() int64 {
	if g.rng.Float64() < 0.9 {
		return g.rng.Int63n(501)
	}
	return 501 + g.rng.Int63n(maxPayFeeFen-500)
}

// discountFeeFen draws a discount: 70% of passages get none.
func (g *Generator) discountFeeFen(payFee int64) int64 {
	if g.rng.Float64() < 0.7 {
		return 0
	}
	limit := maxDiscountFen
	if payFee < limit {
		limit = payFee
	}
	if limit <= 0 {
		return 0
	}
	return g.rng.Int63n(limit + 1)
}

// entranceTime places the matching entrance 10-180 minutes before the
// transaction.
func (g *Generator) entranceTime(txnTime time.Time) time.Time {
	lead := entranceLeadMin + g.rng.Intn(entranceSpreadMin+1)
	return txnTime.Add(-time.Duration(lead) * time.Minute)
}

// GantryTransactions mints n gantry passage records.
func (g *Generator) GantryTransactions(n int) []db.GantryTransaction {
	txns := make([]db.GantryTransaction, n)
	for i := range txns {
		txnTime := g.transactionTime()
		class := g.vehicleClass()
		payFee := g.payFeeFen()
		sectionID := g.sectionID()
		txns[i] = db.GantryTransaction{
			GantryTransactionID: uuid.NewString(),
			GantryID:            sectionID + "-01",
			GantryType:          g.pick(gantryTypes),
			SectionID:           sectionID,
			PassID:              uuid.NewString(),
			TransactionTime:     txnTime,
			EntranceTime:        g.entranceTime(txnTime),
			EntranceLaneType:    g.pick(laneTypes),
			PayFee:              payFee,
			DiscountFee:         g.discountFeeFen(payFee),
			MediaType:           g.pick(mediaTypes),
			VehicleType:         class,
			VehicleSign:         g.pick(vehicleSigns),
			PassState:           g.pick(passStates),
			AxleCount:           float64(g.axleCount(class)),
			TotalWeight:         g.totalWeightKG(class),
			CPUCardType:         g.pick(cpuCardTypes),
			FeeProvBeginHex:     feeProvBeginHex,
		}
	}
	return txns
}

// ExitTransactions mints n exit lane records. These carry the anonymizer's
// quasi-identifiers (section, exit time) plus the business attributes.
func (g *Generator) ExitTransactions(n int) []db.ExitTransaction {
	txns := make([]db.ExitTransaction, n)
	for i := range txns {
		class := g.vehicleClass()
		payFee := g.payFeeFen()
		discount := g.discountFeeFen(payFee)
		limitKG := g.weightLimitKG(class)
		txns[i] = db.ExitTransaction{
			ExitTransactionID:   uuid.NewString(),
			PassID:              uuid.NewString(),
			SectionID:           g.sectionID(),
			VehicleClass:        class,
			VehiclePlateColorID: g.pick(plateColors),
			AxleCount:           fmt.Sprintf("%d", g.axleCount(class)),
			TotalLimit:          fmt.Sprintf("%.0f", limitKG),
			TotalWeight:         fmt.Sprintf("%.0f", g.totalWeightKG(class)),
			CardType:            g.pick(cardTypes),
			PayType:             g.pick(payTypes),
			PayCardType:         g.pick(cpuCardTypes),
			TollMoney:           money.FenToYuan(payFee),
			RealMoney:           money.FenToYuan(payFee - discount),
			CardPayToll:         money.FenToYuan(payFee - discount),
			DiscountType:        g.pick(discountTypes),
			ExitTime:            g.transactionTime(),
		}
	}
	return txns
}

// EntranceTransactions mints n entrance lane records.
func (g *Generator) EntranceTransactions(n int) []db.EntranceTransaction {
	txns := make([]db.EntranceTransaction, n)
	for i := range txns {
		class := g.vehicleClass()
		txns[i] = db.EntranceTransaction{
			EntranceTransactionID: uuid.NewString(),
			PassID:                uuid.NewString(),
			SectionID:             g.sectionID(),
			VehicleClass:          class,
			VehicleColorID:        g.pick(plateColors),
			CardType:              g.pick(cardTypes),
			VehicleSign:           g.pick(vehicleSigns),
			EntranceTime:          g.transactionTime(),
		}
	}
	return txns
}

// weightLimitKG is the legal weight limit for a class, keyed off expected
// axles (GB 1589 style tiers).
func (g *Generator) weightLimitKG(class string) float64 {
	axles := 2
	if c, ok := vehicle.Lookup(class); ok {
		axles = c.ExpectedAxles
	}
	switch {
	case axles <= 2:
		return 18000
	case axles == 3:
		return 25000
	case axles == 4:
		return 31000
	case axles == 5:
		return 43000
	default:
		return 49000
	}
}

// totalWeightKG draws a plausible gross weight under (occasionally over)
// the class limit.
func (g *Generator) totalWeightKG(class string) float64 {
	limit := g.weightLimitKG(class)
	if g.stat != nil {
		return g.stat.sampleWeight(limit)
	}
	// Rule mode: uniform in [0.3, 1.1) of the limit, so roughly one in
	// eight draws lands overweight.
	return limit * (0.3 + 0.8*g.rng.Float64())
}
