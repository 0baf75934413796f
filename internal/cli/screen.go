package cli

import (
	"github.com/spf13/cobra"

	"solscreener/internal/app"
)

var (
	screenJSON         bool
	screenLimit        int
	screenChain        string
	screenMinLiquidity float64
	screenMinTxCount   int64
	screenMaxHolder    float64
	screenRequireLock  bool
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run one screening pass and print the ranked candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		applyScreenOverrides(cmd, a)

		opts := app.ScreenOptions{
			JSON:  screenJSON,
			Limit: screenLimit,
		}

		return a.Screen(cmd.Context(), opts)
	},
}

func applyScreenOverrides(cmd *cobra.Command, a *app.App) {
	if cmd.Flags().Changed("chain") {
		a.Config.Screener.Chain = screenChain
	}
	if cmd.Flags().Changed("min-liquidity") {
		a.Config.Thresholds.MinLiquidityUSD = screenMinLiquidity
	}
	if cmd.Flags().Changed("min-tx-count") {
		a.Config.Thresholds.MinTxCount = screenMinTxCount
	}
	if cmd.Flags().Changed("max-holder-share") {
		a.Config.Thresholds.MaxHolderShare = screenMaxHolder
	}
	if cmd.Flags().Changed("require-lock") {
		a.Config.Thresholds.RequireLiquidityLock = screenRequireLock
	}
}

func init() {
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "Emit one JSON record per ranked candidate")
	screenCmd.Flags().IntVar(&screenLimit, "limit", 0, "Maximum candidates to print (0 = all)")
	screenCmd.Flags().StringVar(&screenChain, "chain", "", "Override chain identifier")
	screenCmd.Flags().Float64Var(&screenMinLiquidity, "min-liquidity", 0, "Override minimum liquidity in USD")
	screenCmd.Flags().Int64Var(&screenMinTxCount, "min-tx-count", 0, "Override minimum 24h transaction count")
	screenCmd.Flags().Float64Var(&screenMaxHolder, "max-holder-share", 0, "Override maximum top-holder share (0-1)")
	screenCmd.Flags().BoolVar(&screenRequireLock, "require-lock", true, "Override liquidity-lock requirement")
}
