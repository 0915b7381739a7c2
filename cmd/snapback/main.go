package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/web3gaoyutang/snapback/internal/config"
	"github.com/web3gaoyutang/snapback/internal/fetcher"
	"github.com/web3gaoyutang/snapback/internal/scheduler"
	"github.com/web3gaoyutang/snapback/internal/server"
	"github.com/web3gaoyutang/snapback/internal/service"
	"github.com/web3gaoyutang/snapback/internal/storage"
	"github.com/web3gaoyutang/snapback/internal/symbol"
	"github.com/web3gaoyutang/snapback/internal/trader"
)

// version is set via -ldflags at build time.
var version = "dev"

var cfgPath string

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	root := &cobra.Command{
		Use:   "snapback",
		Short: "Pyramid position builder for limit-up pullbacks",
		Long: "snapback scans daily bars for a recent limit-up, derives Fibonacci\n" +
			"retracement levels from the move, and spreads capital across staged\n" +
			"limit buy orders on the pullback.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "configs/config.yaml", "config file path")

	root.AddCommand(newServeCmd(), newAnalyzeCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads .env, the YAML config, and validates the result.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func buildFetcher(cfg *config.Config) fetcher.Fetcher {
	if cfg.DataSource.BaseURL != "" {
		return fetcher.NewAPIFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	}
	return fetcher.NewYahooFetcher(cfg.Proxy)
}

func buildStore(cfg *config.Config) storage.Store {
	if cfg.Database.SQLitePath == "" {
		return storage.NewNoopStore()
	}
	s, err := storage.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite store failed, using noop: %v", err)
		return storage.NewNoopStore()
	}
	return s
}

func buildTrader(cfg *config.Config) trader.Client {
	if cfg.Trade.Mode == "gateway" {
		return trader.NewGatewayClient(cfg.Trade.GatewayURL, cfg.Trade.APIKey, cfg.Strategy.LotSize)
	}
	return trader.NewPaperClient(cfg.Strategy.LotSize)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server and order scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			f := buildFetcher(cfg)
			log.Printf("[INFO] data source: %s", f.Name())

			store := buildStore(cfg)
			defer store.Close()

			tr := buildTrader(cfg)
			log.Printf("[INFO] trade mode: %s", tr.Name())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			an := service.NewAnalyzer(f, store, cfg)
			srv := server.New(an, store, tr, cfg)

			sched := scheduler.NewScheduler(ctx, tr, cfg.Trade.PendingFile)
			if err := sched.RegisterAll(cfg.Schedule.PreCloseCron, cfg.Schedule.PostOpenCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			httpSrv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      srv.Handler(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 30 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Printf("[INFO] snapback %s listening on %s", version, cfg.Server.Addr)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-sigCh:
				log.Println("[INFO] shutdown signal received, stopping...")
			}

			shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutCancel()
			if err := httpSrv.Shutdown(shutCtx); err != nil {
				log.Printf("[ERROR] http shutdown: %v", err)
			}
			if err := tr.Disconnect(); err != nil {
				log.Printf("[WARN] trader disconnect: %v", err)
			}
			log.Println("[INFO] snapback stopped")
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		code   string
		amount float64
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one stock and print the order plan",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			an := service.NewAnalyzer(buildFetcher(cfg), storage.NewNoopStore(), cfg)
			analysis, err := an.Analyze(code, amount)
			if err != nil {
				return err
			}
			printAnalysis(analysis)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "stock code, e.g. 600000 or sh.600000")
	cmd.Flags().Float64Var(&amount, "amount", 0, "total capital to allocate")
	cmd.MarkFlagRequired("code")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func printAnalysis(a *service.Analysis) {
	e := a.LimitUp
	fmt.Printf("%s  limit-up %s  range %.2f - %.2f  current %.2f\n",
		a.Symbol, e.Date.Format("2006-01-02"), e.Low, e.High, e.CurrentPrice)

	fmt.Println("\nretracement levels:")
	for _, lv := range a.Levels {
		fmt.Printf("  %.1f%%  %.2f\n", lv.Ratio*100, lv.Price)
	}

	fmt.Println("\norders:")
	for _, o := range a.Result.Orders {
		fmt.Printf("  #%d  stage %d  %d shares @ %.2f  (%s)\n",
			o.OrderNo, o.Stage, o.Shares, o.Price, symbol.FormatMoney(o.Amount))
	}

	s := a.Result.Summary
	fmt.Printf("\nplanned %s  allocated %s  shortfall %s  (%d orders)\n",
		symbol.FormatMoney(s.Planned), symbol.FormatMoney(s.Allocated),
		symbol.FormatMoney(s.Shortfall), s.TotalOrders)

	if !a.Report.OK() {
		fmt.Println("\nwarnings:")
		for _, issue := range a.Report.Issues {
			fmt.Printf("  %s: %s\n", issue.Code, issue.Message)
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("snapback", version)
		},
	}
}
