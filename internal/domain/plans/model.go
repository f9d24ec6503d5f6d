package plans

import (
	"errors"
	"sort"
	"strings"
)

var ErrUnknownPrice = errors.New("unknown price id")

// Historical Stripe price ids, used when the environment does not override them.
const (
	DefaultPriceIndividual = "price_1RczPNRvfrmnvHuYe5qqGK0F"
	DefaultPriceTeam       = "price_1RczQKRvfrmnvHuYJXkaNLq2"
)

// PriceTable maps a Stripe price id to the plan it grants. It is shared by
// the plan listing endpoint and the webhook so both stay in sync.
type PriceTable map[string]Plan

func NewPriceTable(individualPriceID, teamPriceID string) PriceTable {
	if strings.TrimSpace(individualPriceID) == "" {
		individualPriceID = DefaultPriceIndividual
	}
	if strings.TrimSpace(teamPriceID) == "" {
		teamPriceID = DefaultPriceTeam
	}
	return PriceTable{
		strings.TrimSpace(individualPriceID): PlanPaidIndividual,
		strings.TrimSpace(teamPriceID):       PlanPaidTeam,
	}
}

func (t PriceTable) Resolve(priceID string) (Plan, error) {
	p, ok := t[strings.TrimSpace(priceID)]
	if !ok {
		return "", ErrUnknownPrice
	}
	return p, nil
}

type Offer struct {
	PriceID string
	Plan    Plan
}

// Offers lists the table ordered individual first, then team.
func (t PriceTable) Offers() []Offer {
	out := make([]Offer, 0, len(t))
	for id, p := range t {
		out = append(out, Offer{PriceID: id, Plan: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plan != out[j].Plan {
			return out[i].Plan < out[j].Plan
		}
		return out[i].PriceID < out[j].PriceID
	})
	return out
}
