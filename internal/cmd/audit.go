package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/davidsmithrojas/storefront/internal/model"
	"github.com/davidsmithrojas/storefront/internal/repository"
	"github.com/davidsmithrojas/storefront/internal/service"
)

var auditJSON bool

// errDriftFound makes the command exit non-zero so it can gate scripts.
var errDriftFound = errors.New("stock drift found")

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Compare product stock with the inventory ledger",
	Long: `List every product whose current stock differs from the new_stock of its most
recent inventory movement. Products that were never moved and hold no stock are skipped.
Exits with an error when any drift is found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		inventory := service.NewInventoryService(pool,
			repository.NewProductRepository(pool),
			repository.NewInventoryRepository(pool))

		drifts, err := inventory.Audit(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if auditJSON {
			err = json.NewEncoder(out).Encode(drifts)
		} else {
			err = printDrifts(out, drifts)
		}
		if err != nil {
			return err
		}
		if len(drifts) > 0 {
			return fmt.Errorf("%w: %d product(s)", errDriftFound, len(drifts))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Print the drift list as JSON")
}

func printDrifts(w io.Writer, drifts []model.StockDrift) error {
	if len(drifts) == 0 {
		_, err := fmt.Fprintln(w, "ledger and stock agree")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tSTOCK\tLEDGER")
	for _, d := range drifts {
		ledger := "-"
		if d.LedgerStock != nil {
			ledger = strconv.Itoa(*d.LedgerStock)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.ProductID, d.Name, d.Stock, ledger)
	}
	return tw.Flush()
}
