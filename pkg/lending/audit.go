package lending

import (
	"sort"

	"lending/core"
	"lending/pkg/number"
)

// Divergence reserve aggregate that disagrees with the sum of its deposit attributions
type Divergence struct {
	ReserveID string         `json:"reserve_id"`
	Symbol    string         `json:"symbol"`
	Recorded  number.Decimal `json:"recorded"`
	Expected  number.Decimal `json:"expected"`
}

// AttributionSums sum of deposit attributions per reserve over obligations
func AttributionSums(obligations []*core.Obligation) (map[string]number.Decimal, error) {
	sums := make(map[string]number.Decimal)
	for _, o := range obligations {
		for _, d := range o.Deposits {
			sum, err := sums[d.ReserveID].Add(d.AttributedBorrowValue)
			if err != nil {
				return nil, err
			}

			sums[d.ReserveID] = sum
		}
	}

	return sums, nil
}

// AuditAttribution full rescan of every obligation, reporting each reserve whose
// aggregate differs from the rescanned sum. Off the operation path only.
func AuditAttribution(reserves []*core.Reserve, obligations []*core.Obligation) ([]Divergence, error) {
	sums, err := AttributionSums(obligations)
	if err != nil {
		return nil, err
	}

	var out []Divergence
	for _, r := range reserves {
		expected := sums[r.ID]
		if !expected.Equal(r.AttributedBorrowValue) {
			out = append(out, Divergence{
				ReserveID: r.ID,
				Symbol:    r.Symbol,
				Recorded:  r.AttributedBorrowValue,
				Expected:  expected,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ReserveID < out[j].ReserveID
	})

	return out, nil
}
