package reporting

import (
	"io"
	"strconv"

	"github.com/spboyer/syndi/internal/ledger"
	"github.com/spboyer/syndi/internal/models"
)

// CounterpartRow is one line of the counterpart listing.
type CounterpartRow struct {
	Counterpart *models.Counterpart
	Price       int64
	Funded      bool
}

// WriteCounterparts prints the roster with session prices.
func WriteCounterparts(w io.Writer, rows []CounterpartRow) {
	t := newTable("Name", "Caliber", "Model", "Rounds", "Price", "Session", "Wallet").alignRight(3, 4, 5)
	for _, r := range rows {
		cp := r.Counterpart
		rounds := cp.TurnBudget()
		wallet := "✓"
		if !r.Funded {
			wallet = "missing"
		}
		t.add(cp.Name, string(cp.Caliber), cp.Model, strconv.Itoa(rounds),
			Amount(r.Price), Amount(r.Price*int64(rounds)), wallet)
	}
	t.write(w)
}

// BalanceRow is one wallet's balance or the error fetching it.
type BalanceRow struct {
	Name    string
	Balance ledger.Balance
	Err     error
}

// WriteBalances prints wallet balances in whole units.
func WriteBalances(w io.Writer, rows []BalanceRow) {
	t := newTable("Wallet", "Address", "Balance", "Locked").alignRight(2, 3)
	for _, r := range rows {
		if r.Err != nil {
			t.add(r.Name, truncate(r.Balance.Address, 20), "error", truncate(r.Err.Error(), 40))
			continue
		}
		t.add(r.Name, truncate(r.Balance.Address, 20), r.Balance.Units(), Amount(r.Balance.Locked))
	}
	t.write(w)
}
