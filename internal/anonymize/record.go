package anonymize

import "time"

// Record is one exit transaction prepared for release. It carries the two
// quasi-identifiers the pipeline generalizes (section id and exit time)
// plus the business attributes that pass through untouched. Record-level
// identifiers such as the transaction id or pass id must be stripped
// before records enter the pipeline.
type Record struct {
	SectionID string
	ExitTime  time.Time // zero value means the timestamp is missing

	VehicleClass string
	PlateColorID string
	AxleCount    string
	TotalLimit   string
	TotalWeight  string
	CardType     string
	PayType      string
	PayCardType  string
	DiscountType string
	TollMoney    float64
	RealMoney    float64
	CardPayToll  float64
}

// AnonymizedRecord is one released row. The quasi-identifiers are replaced
// by the record's equivalence-class labels; there is deliberately no field
// for the section id, the exit time, or any per-record identifier.
type AnonymizedRecord struct {
	SectionRegion string `json:"section_region"`
	TimePeriod    string `json:"time_period"`

	VehicleClass string  `json:"vehicle_class"`
	PlateColorID string  `json:"vehicle_plate_color_id"`
	AxleCount    string  `json:"axle_count"`
	TotalLimit   string  `json:"total_limit"`
	TotalWeight  string  `json:"total_weight"`
	CardType     string  `json:"card_type"`
	PayType      string  `json:"pay_type"`
	PayCardType  string  `json:"pay_card_type"`
	DiscountType string  `json:"discount_type"`
	TollMoney    float64 `json:"toll_money"`
	RealMoney    float64 `json:"real_money"`
	CardPayToll  float64 `json:"card_pay_toll"`

	KAnonymized bool   `json:"k_anonymized"`
	Algorithm   string `json:"algorithm"`
}

// Result is the outcome of one Anonymize call.
type Result struct {
	Records []AnonymizedRecord `json:"records"`

	// TotalRecords is len(Records).
	TotalRecords int `json:"total_records"`

	// EquivalenceClasses counts the distinct label pairs in Records.
	EquivalenceClasses int `json:"equivalence_classes"`

	// SuppressedCount counts records dropped from suppressed classes. The
	// repair pass merges under-sized clusters instead of suppressing them,
	// so this is currently always zero; the field is part of the release
	// contract.
	SuppressedCount int `json:"suppressed_count"`
}

// release binds a record's business attributes to its class labels.
func release(r Record, region, period string) AnonymizedRecord {
	return AnonymizedRecord{
		SectionRegion: region,
		TimePeriod:    period,
		VehicleClass:  r.VehicleClass,
		PlateColorID:  r.PlateColorID,
		AxleCount:     r.AxleCount,
		TotalLimit:    r.TotalLimit,
		TotalWeight:   r.TotalWeight,
		CardType:      r.CardType,
		PayType:       r.PayType,
		PayCardType:   r.PayCardType,
		DiscountType:  r.DiscountType,
		TollMoney:     r.TollMoney,
		RealMoney:     r.RealMoney,
		CardPayToll:   r.CardPayToll,
		KAnonymized:   true,
		Algorithm:     Algorithm,
	}
}
