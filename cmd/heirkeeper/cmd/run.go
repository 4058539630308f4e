package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solheir/heirkeeper/internal/discover"
	"github.com/solheir/heirkeeper/internal/dispatch"
	"github.com/solheir/heirkeeper/internal/engine"
	"github.com/solheir/heirkeeper/internal/funding"
	"github.com/solheir/heirkeeper/internal/health"
	"github.com/solheir/heirkeeper/internal/ledger"
	"github.com/solheir/heirkeeper/internal/metrics"
	"github.com/solheir/heirkeeper/internal/notify"
	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/ratelimit"
	"github.com/solheir/heirkeeper/pkg/retry"
	"github.com/solheir/heirkeeper/pkg/shutdown"
)

var (
	checkIntervalMin int
	minBalanceSOL    float64
	claimMode        string
	submitDelaySec   int
	httpAddr         string
	webhookURL       string
	logLevel         string
	logJSON          bool
	logToFile        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the keeper daemon",
	Long: `Run starts the monitoring loop: every check interval the keeper
discovers inheritance records from the ledger, evaluates inactivity
eligibility, and executes the eligible ones. The loop stops gracefully on
SIGTERM/SIGINT; an in-flight cycle is allowed to finish.

Example:
  heirkeeper run --network devnet --program-id <id>
  heirkeeper run --interval 10 --min-balance 0.1 --claim-mode prepare`,
	RunE: runKeeper,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&checkIntervalMin, "interval", 5, "check interval in minutes")
	runCmd.Flags().Float64Var(&minBalanceSOL, "min-balance", 0.05, "minimum operating balance in SOL before executions are skipped")
	runCmd.Flags().StringVar(&claimMode, "claim-mode", "direct", "claim custody pattern: direct (keeper submits) or prepare (heir co-signs)")
	runCmd.Flags().IntVar(&submitDelaySec, "submit-delay", 3, "seconds between transaction submissions within a cycle")
	runCmd.Flags().StringVar(&httpAddr, "http-addr", ":9464", "health/metrics listen address")
	runCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "optional webhook endpoint for eligibility/execution events")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	runCmd.Flags().BoolVar(&logJSON, "log-json", false, "emit JSON log lines")
	runCmd.Flags().BoolVar(&logToFile, "log-file", false, "tee logs to /var/log/heirkeeper (or ./logs)")
}

func runKeeper(cmd *cobra.Command, args []string) error {
	progID, err := programID()
	if err != nil {
		return err
	}

	var logger *logging.Logger
	if logToFile {
		logger, err = logging.NewFileLogger("keeper", logging.ParseLevel(logLevel), logJSON)
		if err != nil {
			return err
		}
	} else {
		logger = logging.New("keeper", logging.ParseLevel(logLevel), logJSON)
	}

	keypair, err := loadKeypair()
	if err != nil {
		return err
	}
	if keypair.Generated {
		fmt.Print(keypair.FundingPrompt(network))
	}

	client := ledger.NewRPCClient(endpoint(), progID)
	retryConfig := retry.DefaultConfig()

	strategy, err := dispatch.StrategyFor(claimMode)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger.WithComponent("notify"))
	if webhookURL == "" {
		webhookURL = viper.GetString("webhook_url")
	}
	if webhookURL != "" {
		notifier = notify.NewMulti(logger,
			notify.NewLogNotifier(logger.WithComponent("notify")),
			notify.NewWebhookNotifier(webhookURL, logger.WithComponent("webhook")),
		)
	}

	collector := metrics.NewCollector()
	floor := uint64(minBalanceSOL * float64(solana.LAMPORTS_PER_SOL))

	dispatcher := dispatch.New(dispatch.Config{
		Client:    client,
		ProgramID: progID,
		Keeper:    keypair.PrivateKey,
		Strategy:  strategy,
		Retry:     retryConfig,
		Pacer:     ratelimit.NewPacer(time.Duration(submitDelaySec) * time.Second),
		Notifier:  notifier,
		Logger:    logger.WithComponent("dispatch"),
	})

	keeper := engine.New(engine.Config{
		Discoverer: discover.New(client, retryConfig, logger.WithComponent("discover")),
		Guard:      funding.New(client, keypair.PublicKey(), floor, retryConfig, logger.WithComponent("funding")),
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Collector:  collector,
		Logger:     logger.WithComponent("engine"),
		Interval:   time.Duration(checkIntervalMin) * time.Minute,
	})

	logger.Info("starting heirkeeper", logging.Fields{
		"network":    network,
		"endpoint":   endpoint(),
		"program":    progID.String(),
		"operator":   keypair.PublicKey().String(),
		"interval":   fmt.Sprintf("%dm", checkIntervalMin),
		"claim_mode": strategy.Name(),
		"fee_floor":  floor,
	})

	server := health.NewServer(httpAddr, keeper, network, keypair.PublicKey().String(), logger.WithComponent("health"))
	server.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	keeper.Start(ctx)

	// LIFO: the keeper drains first, then the HTTP surface, then the log file
	mgr := shutdown.New(30 * time.Second)
	mgr.Register(shutdown.CloseResource(logger, "logger"))
	mgr.Register(shutdown.StopHTTPServer(server.HTTPServer(), "health"))
	mgr.Register(func(context.Context) error {
		keeper.Stop()
		return nil
	})
	mgr.Wait()

	return nil
}
