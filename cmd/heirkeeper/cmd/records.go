package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/solheir/heirkeeper/internal/discover"
	"github.com/solheir/heirkeeper/internal/eligibility"
	"github.com/solheir/heirkeeper/internal/ledger"
	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/models"
	"github.com/solheir/heirkeeper/pkg/retry"
)

var eligibleOnly bool

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List inheritance records held by the ledger program",
	Long: `Records performs a one-shot discovery pass and prints every
unclaimed inheritance record, its owner inactivity, and whether it is
currently eligible for execution.

Example:
  heirkeeper records --network devnet --program-id <id>
  heirkeeper records --eligible-only --output json`,
	RunE: listRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.Flags().BoolVar(&eligibleOnly, "eligible-only", false, "show only records eligible right now")
}

type recordView struct {
	Record   *models.InheritanceRecord `json:"record"`
	Eligible bool                      `json:"eligible"`
	Elapsed  string                    `json:"elapsed"`
}

func listRecords(cmd *cobra.Command, args []string) error {
	progID, err := programID()
	if err != nil {
		return err
	}

	logger := logging.New("records", logging.WARN, false)
	client := ledger.NewRPCClient(endpoint(), progID)
	discoverer := discover.New(client, retry.DefaultConfig(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	records, err := discoverer.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	now := time.Now()
	views := make([]recordView, 0, len(records))
	for _, record := range records {
		ok := eligibility.Eligible(record, now)
		if eligibleOnly && !ok {
			continue
		}
		views = append(views, recordView{
			Record:   record,
			Eligible: ok,
			Elapsed:  record.Elapsed(now).Truncate(time.Second).String(),
		})
	}

	if IsJSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(views)
	}

	if len(views) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Record", "Kind", "Owner", "Heirs", "Amount", "Elapsed", "Threshold", "Eligible")
	for _, view := range views {
		record := view.Record
		heirs := fmt.Sprintf("%d", len(record.Heirs))
		if len(record.Heirs) == 1 {
			heirs = shorten(record.PrimaryHeir().Address.String())
		}
		table.Append(
			shorten(record.ID()),
			string(record.Kind),
			shorten(record.Owner.String()),
			heirs,
			fmt.Sprintf("%d", record.Amount),
			view.Elapsed,
			record.InactivityThreshold.String(),
			fmt.Sprintf("%t", view.Eligible),
		)
	}
	table.Render()
	fmt.Printf("\n%d record(s), %d shown\n", len(records), len(views))
	return nil
}

func shorten(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + ".." + address[len(address)-4:]
}
