package workflow

// Fees holds the charge breakdown submitted by a broker. Fields are nullable
// because brokers may omit individual charges.
type Fees struct {
	Duties   *float64 `json:"duties"`
	Shipping *float64 `json:"shipping"`
	Storage  *float64 `json:"storage"`
}

// Total sums the present charges.
func (f Fees) Total() float64 {
	var total float64
	for _, v := range []*float64{f.Duties, f.Shipping, f.Storage} {
		if v != nil {
			total += *v
		}
	}
	return total
}

// Empty reports whether no charge was provided at all.
func (f Fees) Empty() bool {
	return f.Duties == nil && f.Shipping == nil && f.Storage == nil
}

// Receipt holds payment evidence attached on confirmation.
type Receipt struct {
	Name string `json:"name"`
	Data []byte `json:"data,omitempty"`
}
