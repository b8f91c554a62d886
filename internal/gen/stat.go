package gen

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tollgate-data/gantryflow/internal/vehicle"
)

// sectionFrequency is the empirical section traffic table from a production
// sample (counts over one month of gantry passages).
var sectionFrequency = []struct {
	id    string
	count float64
}{
	{"G5615530120", 14949},
	{"S0014530010", 10116},
	{"S0010530020", 9279},
	{"S0010530010", 4228},
	{"G7611530010", 2573},
	{"S0071530020", 1552},
	{"S0014530030", 468},
	{"S0014530020", 4},
}

// hourWeights favors daytime hours the way production traffic does: a low
// overnight floor, a morning ramp, and a broad 8:00-18:00 plateau.
var hourWeights = []float64{
	1, 1, 1, 1, 2, 3, // 00-05
	5, 8, 12, 12, 11, 10, // 06-11
	9, 9, 10, 11, 12, 12, // 12-17
	10, 8, 6, 4, 2, 1, // 18-23
}

// vehicleClassWeights skews toward small coaches and 2-3 axle trucks.
var vehicleClassWeights = map[string]float64{
	"1": 30, "2": 6, "3": 4, "4": 3,
	"11": 25, "12": 12, "13": 8, "14": 6, "15": 4, "16": 2,
}

// statSampler draws fields from the empirical distributions. All draws
// share one seeded source so a batch is reproducible.
type statSampler struct {
	rng      *rand.Rand
	sections distuv.Categorical
	hours    distuv.Categorical
	classes  distuv.Categorical
	classIDs []string
	weight   distuv.Normal
}

func newStatSampler(seed uint64) *statSampler {
	src := rand.NewSource(seed)

	sectionWeights := make([]float64, len(sectionFrequency))
	for i, s := range sectionFrequency {
		sectionWeights[i] = s.count
	}

	classIDs := append(vehicle.CoachClasses(), vehicle.TruckClasses()...)
	classWeights := make([]float64, len(classIDs))
	for i, id := range classIDs {
		classWeights[i] = vehicleClassWeights[id]
	}

	return &statSampler{
		rng:      rand.New(src),
		sections: distuv.NewCategorical(sectionWeights, src),
		hours:    distuv.NewCategorical(hourWeights, src),
		classes:  distuv.NewCategorical(classWeights, src),
		classIDs: classIDs,
		// Gross weight as a fraction of the legal limit: most loads sit
		// around 70% with a tail past 100% (overweight).
		weight: distuv.Normal{Mu: 0.7, Sigma: 0.2, Src: src},
	}
}

func (s *statSampler) sampleSection() string {
	return sectionFrequency[int(s.sections.Rand())].id
}

func (s *statSampler) sampleVehicleClass() string {
	return s.classIDs[int(s.classes.Rand())]
}

// sampleTime picks a day uniformly in the window, an hour from the daytime
// weights, and uniform minutes within the hour.
func (s *statSampler) sampleTime(start, end time.Time) time.Time {
	days := int(end.Sub(start).Hours()/24) + 1
	day := start.AddDate(0, 0, s.rng.Intn(days))
	t := time.Date(day.Year(), day.Month(), day.Day(),
		int(s.hours.Rand()), s.rng.Intn(60), s.rng.Intn(60), 0, day.Location())
	// Hour weighting can push past a partial final day; fold back in.
	if !t.Before(end) {
		t = end.Add(-time.Duration(s.rng.Intn(3600)) * time.Second)
	}
	if t.Before(start) {
		t = start
	}
	return t
}

// sampleAxleCount draws axles near the class's expected configuration.
func (s *statSampler) sampleAxleCount(class string) int {
	expected := 2
	if c, ok := vehicle.Lookup(class); ok {
		expected = c.ExpectedAxles
	}
	// 80% the expected count, 20% one off (clamped to 2-6).
	axles := expected
	switch r := s.rng.Float64(); {
	case r < 0.1:
		axles--
	case r < 0.2:
		axles++
	}
	if axles < 2 {
		axles = 2
	}
	if axles > 6 {
		axles = 6
	}
	return axles
}

// sampleWeight draws a truncated-normal gross weight for the limit.
func (s *statSampler) sampleWeight(limitKG float64) float64 {
	for i := 0; i < 10; i++ {
		frac := s.weight.Rand()
		if frac > 0.05 && frac < 1.3 {
			return limitKG * frac
		}
	}
	return limitKG * 0.7
}
