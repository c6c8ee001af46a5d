// Package equity aggregates completion values and settlements into a
// fairness snapshot for a household: per-member balances, a nominal shared
// household value, and a who-owes-whom recommendation. It is a pure
// read-side aggregation over records the valuation flow has already
// persisted.
package equity

import (
	"math"
	"time"

	"github.com/mwhitlock/fairshare/internal/store"
)

// settledThreshold is the balance gap under which the household is
// considered even and no net balance is reported.
const settledThreshold = 0.01

// Balance is one member's contribution over the analyzed window, after
// settlement adjustments.
type Balance struct {
	UserID     string  `json:"userId"`
	UserName   string  `json:"userName"`
	TotalValue float64 `json:"totalValue"`
	ChoreCount int     `json:"choreCount"`
}

// NetBalance is the settlement recommendation: OwedBy (the debtor) pays
// Amount to OwedTo to even the household out.
type NetBalance struct {
	OwedBy string  `json:"owedBy"`
	OwedTo string  `json:"owedTo"`
	Amount float64 `json:"amount"`
}

type Period struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

type Analysis struct {
	Balances            []Balance   `json:"balances"`
	NetBalance          *NetBalance `json:"netBalance"`
	TotalHouseholdValue float64     `json:"totalHouseholdValue"`
	Period              Period      `json:"period"`
}

// Service derives equity analyses from persisted completion and settlement
// records. Stateless per call.
type Service struct {
	chores      *store.ChoreStore
	settlements *store.SettlementStore
}

func NewService(chores *store.ChoreStore, settlements *store.SettlementStore) *Service {
	return &Service{chores: chores, settlements: settlements}
}

// Analyze produces the fairness snapshot for a household over an optional
// window. Both bounds are inclusive; a nil bound means unbounded on that
// side. The Period in the result defaults the missing bounds to the epoch
// and to now purely for display.
func (s *Service) Analyze(householdID string, start, end *time.Time) (*Analysis, error) {
	completions, err := s.chores.ListCompletions(householdID, start, end)
	if err != nil {
		return nil, err
	}

	settlements, err := s.settlements.List(householdID, start, end)
	if err != nil {
		return nil, err
	}

	// Group completions by completer, preserving first-seen order so the
	// balances slice is deterministic.
	balances := []Balance{}
	index := make(map[string]int)
	for _, c := range completions {
		i, ok := index[c.CompletedBy]
		if !ok {
			i = len(balances)
			index[c.CompletedBy] = i
			balances = append(balances, Balance{
				UserID:   c.CompletedBy,
				UserName: c.CompletedByName,
			})
		}
		balances[i].TotalValue += c.Value
		balances[i].ChoreCount++
	}

	// Net settlement adjustment per user: payments made subtract, payments
	// received add. Adjustments for users with no completions in the window
	// have no balance to land on and are dropped.
	adjustments := make(map[string]float64)
	for _, st := range settlements {
		adjustments[st.FromUser] -= st.Amount
		adjustments[st.ToUser] += st.Amount
	}
	for i := range balances {
		balances[i].TotalValue += adjustments[balances[i].UserID]
	}

	// Both members contribute toward the same shared outcome, so the sum of
	// absolute balances is halved to a nominal household value. Assumes two
	// contributing members.
	var total float64
	for _, b := range balances {
		total += math.Abs(b.TotalValue)
	}

	var net *NetBalance
	if len(balances) == 2 {
		difference := balances[0].TotalValue - balances[1].TotalValue
		if math.Abs(difference) > settledThreshold {
			net = &NetBalance{
				OwedBy: balances[0].UserID,
				OwedTo: balances[1].UserID,
				// Moving half the gap from the higher to the lower evens
				// the household out.
				Amount: math.Abs(difference) / 2,
			}
			if difference > 0 {
				net.OwedBy, net.OwedTo = balances[1].UserID, balances[0].UserID
			}
		}
	}

	return &Analysis{
		Balances:            balances,
		NetBalance:          net,
		TotalHouseholdValue: total / 2,
		Period:              displayPeriod(start, end),
	}, nil
}

func displayPeriod(start, end *time.Time) Period {
	p := Period{StartDate: time.Unix(0, 0).UTC(), EndDate: time.Now()}
	if start != nil {
		p.StartDate = *start
	}
	if end != nil {
		p.EndDate = *end
	}
	return p
}
