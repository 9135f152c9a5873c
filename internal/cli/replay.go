package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tokenrelay/relayd/internal/config"
	"github.com/tokenrelay/relayd/internal/core/event"
	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
)

var (
	replayInput     string
	replayKeepGoing bool
)

// replayEvent is the JSON shape of one event in a replay file. Convert,
// when present, is encoded into the transfer memo.
type replayEvent struct {
	Type     string `json:"type"` // transfer or issue
	Currency string `json:"currency"`
	From     string `json:"from,omitempty"`
	To       string `json:"to"`
	Amount   uint64 `json:"amount"`
	Memo     []byte `json:"memo,omitempty"`
	Convert  *struct {
		Target    string `json:"target"`
		MinReturn uint64 `json:"min_return"`
	} `json:"convert,omitempty"`
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay events from a file",
	Long: `Apply a JSON file of transfer and issue events against the configured
store. Each event is applied atomically in file order; by default the
replay stops at the first rejected event.`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayInput, "input", "", "path to the events JSON file (required)")
	replayCmd.Flags().BoolVar(&replayKeepGoing, "keep-going", false, "continue past rejected events")
	replayCmd.MarkFlagRequired("input")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(resolveConfigPath())
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(replayInput)
	if err != nil {
		return fmt.Errorf("reading events file: %w", err)
	}
	var events []replayEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return fmt.Errorf("parsing events file: %w", err)
	}

	ctx := cmd.Context()
	n, err := openNode(ctx, cfg)
	if err != nil {
		return err
	}
	defer n.Close()

	applied, rejected := 0, 0
	for i, re := range events {
		ev, err := buildEvent(re)
		if err == nil {
			err = n.engine.Apply(ctx, ev)
		}
		if err != nil {
			rejected++
			if !replayKeepGoing {
				return fmt.Errorf("event %d rejected: %w", i, err)
			}
			if !quiet {
				fmt.Printf("event %d rejected: %v\n", i, err)
			}
			continue
		}
		applied++
	}

	if !quiet {
		fmt.Printf("replay complete: %d applied, %d rejected\n", applied, rejected)
	}
	return nil
}

func buildEvent(re replayEvent) (event.Event, error) {
	switch re.Type {
	case "transfer":
		memo := re.Memo
		if re.Convert != nil {
			encoded, err := relay.EncodeRequest(relay.Request{
				Target:    token.Currency(re.Convert.Target),
				MinReturn: re.Convert.MinReturn,
			})
			if err != nil {
				return nil, err
			}
			memo = encoded
		}
		return &event.Transfer{
			Currency: token.Currency(re.Currency),
			From:     token.Account(re.From),
			To:       token.Account(re.To),
			Amount:   re.Amount,
			Memo:     memo,
		}, nil
	case "issue":
		return &event.Issue{
			Currency: token.Currency(re.Currency),
			To:       token.Account(re.To),
			Amount:   re.Amount,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", event.ErrInvalidEvent, re.Type)
	}
}
