// Package vehicle provides the application-level registry of toll vehicle
// class codes and helpers for scoping queries to a vehicle kind.
package vehicle

// Class describes one vehicle class code from the toll network vocabulary.
type Class struct {
	Code          string `json:"code"`
	DisplayName   string `json:"display_name"`
	Kind          string `json:"kind"` // "truck" or "coach"
	ExpectedAxles int    `json:"expected_axles"`
}

// Kind constants used by analytics queries and the flow rollup worker.
const (
	KindTruck = "truck"
	KindCoach = "coach"
	KindAll   = "all"
)

// Registry is the application-level registry of vehicle classes.
var Registry = map[string]Class{
	"1":  {Code: "1", DisplayName: "coach (up to 7 seats)", Kind: KindCoach, ExpectedAxles: 2},
	"2":  {Code: "2", DisplayName: "coach (8-19 seats)", Kind: KindCoach, ExpectedAxles: 2},
	"3":  {Code: "3", DisplayName: "coach (20-39 seats)", Kind: KindCoach, ExpectedAxles: 2},
	"4":  {Code: "4", DisplayName: "coach (40+ seats)", Kind: KindCoach, ExpectedAxles: 3},
	"11": {Code: "11", DisplayName: "truck (2 axles)", Kind: KindTruck, ExpectedAxles: 2},
	"12": {Code: "12", DisplayName: "truck (3 axles)", Kind: KindTruck, ExpectedAxles: 3},
	"13": {Code: "13", DisplayName: "truck (4 axles)", Kind: KindTruck, ExpectedAxles: 4},
	"14": {Code: "14", DisplayName: "truck (5 axles)", Kind: KindTruck, ExpectedAxles: 5},
	"15": {Code: "15", DisplayName: "truck (6 axles)", Kind: KindTruck, ExpectedAxles: 6},
	"16": {Code: "16", DisplayName: "truck (over 6 axles)", Kind: KindTruck, ExpectedAxles: 6},
}

// TruckClasses returns the truck class codes in ascending order. Analytics
// endpoints and the anonymizer input query are scoped to these codes.
func TruckClasses() []string {
	return []string{"11", "12", "13", "14", "15", "16"}
}

// CoachClasses returns the coach class codes in ascending order.
func CoachClasses() []string {
	return []string{"1", "2", "3", "4"}
}

// ClassesForKind maps a kind to its class codes. KindAll returns nil,
// meaning no class filter.
func ClassesForKind(kind string) []string {
	switch kind {
	case KindTruck:
		return TruckClasses()
	case KindCoach:
		return CoachClasses()
	default:
		return nil
	}
}

// IsTruck reports whether the class code belongs to a truck class.
func IsTruck(code string) bool {
	c, ok := Registry[code]
	return ok && c.Kind == KindTruck
}

// Lookup returns the class for a code.
func Lookup(code string) (Class, bool) {
	c, ok := Registry[code]
	return c, ok
}
