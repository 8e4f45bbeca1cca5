package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spboyer/syndi/internal/ledger"
	"github.com/spboyer/syndi/internal/settlement"
)

// WriteLedgerSummary prints the treasury's inflow and outflow. explorer
// turns a transaction id into a link; nil omits the links.
func WriteLedgerSummary(w io.Writer, s settlement.Summary, explorer func(txID string) string) {
	t := newTable("Flow", "Count", "Amount").alignRight(1, 2)
	t.add("Session payments", strconv.Itoa(s.Payments), Amount(s.Inflow))
	t.add("Conversion rewards", strconv.Itoa(s.RewardCount), Amount(s.Rewards))
	t.add("Missionary bonuses", strconv.Itoa(s.BonusCount), Amount(s.Bonuses))
	t.add("Arena payouts", strconv.Itoa(s.ArenaCount), Amount(s.ArenaPayouts))
	t.add("Outflow", "", Amount(s.Outflow))
	t.add("Net revenue", "", Signed(s.NetRevenue))
	t.write(w)

	fmt.Fprintf(w, "\n  Transfers: %d confirmed, %d failed or dry run\n", s.Successful, s.FailedOrDry) //nolint:errcheck
	if explorer == nil {
		return
	}
	for _, id := range s.ExplorerTxIDs {
		fmt.Fprintf(w, "    %s\n", explorer(id)) //nolint:errcheck
	}
}

// WriteArena prints an arena settlement and any missionary bonuses.
func WriteArena(w io.Writer, s settlement.Settlement, missionaries []settlement.Missionary) {
	t := newTable("Agent", "Score", "Level", "Staked", "Earned", "Net").alignRight(1, 3, 4, 5)
	for _, sh := range s.Shares {
		t.add(sh.Agent, strconv.Itoa(sh.Score), sh.Level, Amount(sh.Staked), Amount(sh.Earned), Signed(sh.Net))
	}
	t.write(w)

	fmt.Fprintf(w, "\n  Pool %s, distributed %s, treasury keeps %s\n", //nolint:errcheck
		Amount(s.TotalPool), Amount(s.Distributed()), Amount(s.TreasuryRemainder))
	if len(missionaries) == 0 {
		return
	}
	fmt.Fprintln(w, "\n  Missionaries:") //nolint:errcheck
	for _, m := range missionaries {
		fmt.Fprintf(w, "    %s +%s  %q\n", m.Agent, Amount(m.Bonus), m.Message) //nolint:errcheck
	}
}

// WriteBudget prints a paying client's spend against its budget.
func WriteBudget(w io.Writer, s ledger.BudgetSummary) {
	fmt.Fprintf(w, "  %s spent %s of %s (%s remaining)\n", //nolint:errcheck
		s.Account, Amount(s.Spent), Amount(s.Limit), Amount(s.Remaining))
	if len(s.History) == 0 {
		return
	}
	t := newTable("To", "Amount", "Status", "Tx").alignRight(1)
	for _, tr := range s.History {
		t.add(tr.To, Amount(tr.Amount), string(tr.Status), truncate(tr.TxID, 24))
	}
	t.write(w)
}

// WritePayouts prints executed payouts under title.
func WritePayouts(w io.Writer, title string, payouts []settlement.Payout) {
	if len(payouts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n  %s:\n", title) //nolint:errcheck
	t := newTable("Agent", "Amount", "Result").alignRight(1)
	for _, p := range payouts {
		result := "✓"
		switch {
		case p.Error != "":
			result = "✗ " + p.Error
		case p.Paid():
			result = "✓ " + truncate(p.Transfer.TxID, 24)
		case p.Transfer != nil:
			result = "✗ " + p.Transfer.Error
		}
		t.add(p.Agent, Amount(p.Amount), result)
	}
	t.write(w)
}
