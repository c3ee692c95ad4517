package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// PlanID identifies a subscription tier.
type PlanID string

const (
	PlanTurbo PlanID = "turbo"
	PlanV6    PlanID = "v6"
	PlanV12   PlanID = "v12"
)

// Unlimited marks a quota with no upper bound.
const Unlimited = -1

// UnlimitedLabel is how an unlimited quota is shown to users.
const UnlimitedLabel = "Ilimitado"

// Plan is a static subscription tier definition.
type Plan struct {
	ID          PlanID          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	MaxProducts int             `json:"maxProducts"`
	MaxUsers    int             `json:"maxUsers"`
	Features    []string        `json:"features"`
	Color       string          `json:"color"`
	Icon        string          `json:"icon"`
}

// PlanView is a plan with display-ready quota labels.
type PlanView struct {
	Plan
	ProductsLabel string `json:"productsLabel"`
	UsersLabel    string `json:"usersLabel"`
}

var planCatalog = map[PlanID]Plan{
	PlanTurbo: {
		ID:          PlanTurbo,
		Name:        "Turbo",
		Price:       decimal.RequireFromString("99.90"),
		MaxProducts: 100,
		MaxUsers:    2,
		Features: []string{
			"Até 100 produtos",
			"2 usuários",
			"Importação de planilhas",
			"Suporte por email",
		},
		Color: "text-blue-600",
		Icon:  "🚗",
	},
	PlanV6: {
		ID:          PlanV6,
		Name:        "V6",
		Price:       decimal.RequireFromString("249.90"),
		MaxProducts: 500,
		MaxUsers:    5,
		Features: []string{
			"Até 500 produtos",
			"5 usuários",
			"Importação de planilhas",
			"API de integração",
			"Suporte prioritário",
			"Relatórios avançados",
		},
		Color: "text-orange-600",
		Icon:  "🏎️",
	},
	PlanV12: {
		ID:          PlanV12,
		Name:        "V12",
		Price:       decimal.RequireFromString("499.90"),
		MaxProducts: Unlimited,
		MaxUsers:    Unlimited,
		Features: []string{
			"Produtos ilimitados",
			"Usuários ilimitados",
			"Importação de planilhas",
			"API de integração",
			"Suporte 24/7",
			"Relatórios avançados",
			"Gerente de conta dedicado",
			"Customizações",
		},
		Color: "text-primary",
		Icon:  "🏁",
	},
}

var planOrder = []PlanID{PlanTurbo, PlanV6, PlanV12}

// Plans returns the catalog ordered from cheapest to most expensive.
func Plans() []Plan {
	out := make([]Plan, 0, len(planOrder))
	for _, id := range planOrder {
		out = append(out, planCatalog[id])
	}
	return out
}

// LookupPlan resolves a plan identifier. Unknown identifiers return false.
func LookupPlan(id string) (Plan, bool) {
	p, ok := planCatalog[PlanID(id)]
	return p, ok
}

// IsValidPlan reports whether id belongs to the closed plan set.
func IsValidPlan(id string) bool {
	_, ok := planCatalog[PlanID(id)]
	return ok
}

// QuotaLabel renders a quota for display; Unlimited never shows as a number.
func QuotaLabel(n int) string {
	if n == Unlimited {
		return UnlimitedLabel
	}
	return strconv.Itoa(n)
}

// View returns the plan with its display labels.
func (p Plan) View() PlanView {
	return PlanView{
		Plan:          p,
		ProductsLabel: QuotaLabel(p.MaxProducts),
		UsersLabel:    QuotaLabel(p.MaxUsers),
	}
}

// AllowsProducts reports whether a partner holding n products may add more.
func (p Plan) AllowsProducts(n int) bool {
	return p.MaxProducts == Unlimited || n < p.MaxProducts
}

// RemainingProducts returns how many more products fit, or Unlimited.
func (p Plan) RemainingProducts(n int) int {
	if p.MaxProducts == Unlimited {
		return Unlimited
	}
	if n >= p.MaxProducts {
		return 0
	}
	return p.MaxProducts - n
}

// UpgradesFrom returns the plans priced above current.
func UpgradesFrom(current PlanID) []Plan {
	cur, ok := planCatalog[current]
	var out []Plan
	for _, p := range Plans() {
		if !ok || p.Price.GreaterThan(cur.Price) {
			out = append(out, p)
		}
	}
	return out
}
