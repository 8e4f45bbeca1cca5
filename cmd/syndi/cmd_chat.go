package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spboyer/syndi/internal/ledger"
	"github.com/spboyer/syndi/internal/models"
	"github.com/spboyer/syndi/internal/reporting"
	"github.com/spboyer/syndi/internal/webapi"
	"github.com/spboyer/syndi/internal/x402"
	"github.com/spf13/cobra"
)

func newChatCommand() *cobra.Command {
	var server string
	var payer string
	var message string

	cmd := &cobra.Command{
		Use:   "chat <counterpart>",
		Short: "Talk to the persuader through a running server, paying per reply",
		Long: `Act as a counterpart against a running syndi server. Each reply is bought
through the payment-required flow: the server quotes a price, the payer wallet
pays it on the ledger within its budget, and the request is retried with the
proof.

Lines read from stdin are sent one at a time; --message sends a single line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(configDir(cmd))
			if err != nil {
				return err
			}
			reg, err := a.registry()
			if err != nil {
				return err
			}
			acct, ok := reg.Account(payer)
			if !ok {
				return fmt.Errorf("payer %q has no wallet in the registry", payer)
			}
			if server == "" {
				server = fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)
			}

			budget := ledger.NewBudgetGuard(a.newGateway(), acct, a.cfg.Payments.MaxPerPayment, a.cfg.Payments.BudgetLimit)
			c := &chatClient{
				server:      strings.TrimRight(server, "/"),
				counterpart: args[0],
				http:        x402.NewClient(&http.Client{Timeout: 2 * time.Minute}, budget, a.logger),
			}

			out := cmd.OutOrStdout()
			defer func() {
				fmt.Fprintln(out) //nolint:errcheck
				reporting.WriteBudget(out, c.http.Summary())
			}()

			if message != "" {
				return c.say(cmd.Context(), out, message)
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if err := c.say(cmd.Context(), out, line); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server base URL (default http://localhost:<server.port>)")
	cmd.Flags().StringVar(&payer, "payer", "Client", "Registry wallet that pays for replies")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send one message and exit")

	return cmd
}

// chatClient keeps the running conversation with one counterpart.
type chatClient struct {
	server      string
	counterpart string
	http        *x402.Client
	history     models.Transcript
}

func (c *chatClient) say(ctx context.Context, out io.Writer, msg string) error {
	body, err := json.Marshal(webapi.ChatRequest{Counterpart: c.counterpart, History: c.history, Message: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		var e webapi.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return fmt.Errorf("chat request: %s", resp.Status)
		}
		return fmt.Errorf("chat request: %s: %s", resp.Status, e.Error)
	}

	var chat webapi.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return fmt.Errorf("decoding reply: %w", err)
	}

	round := 0
	if n := len(c.history); n > 0 {
		round = c.history[n-1].Round
	}
	c.history = append(c.history,
		models.TranscriptEntry{Speaker: c.counterpart, Text: msg, Round: round},
		chat.Reply)

	fmt.Fprintf(out, "%s: %s\n", chat.Reply.Speaker, chat.Reply.Text) //nolint:errcheck
	if chat.Payment != nil {
		fmt.Fprintf(out, "  paid %s %s (%s)\n", //nolint:errcheck
			reporting.Amount(chat.Payment.Amount), chat.Payment.Currency, chat.Payment.TxID)
	}
	return nil
}
