package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/madhatv/payment-recovery/internal/app"
	"github.com/madhatv/payment-recovery/internal/config"
	"github.com/madhatv/payment-recovery/internal/database"
	"github.com/madhatv/payment-recovery/internal/model"
	"github.com/madhatv/payment-recovery/internal/reconcile"
	"github.com/madhatv/payment-recovery/internal/repository"
	"github.com/madhatv/payment-recovery/internal/utils"
)

func newListCmd() *cobra.Command {
	var (
		status, purpose string
		limit, offset   int
		asJSON          bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List failed payment records",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := repository.FailedPaymentFilter{Limit: limit, Offset: offset}
			if status != "" {
				f.Status = model.RestoreStatus(strings.ToUpper(status))
				if !f.Status.Valid() {
					return fmt.Errorf("unknown status %q", status)
				}
			}
			if purpose != "" {
				f.Purpose = model.Purpose(strings.ToLower(purpose))
				if !f.Purpose.Valid() {
					return fmt.Errorf("unknown purpose %q", purpose)
				}
			}
			rt, err := connect(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			records, err := repository.NewFailedPaymentRepo(rt.db).List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No failed payments found.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPAYMENT\tPURPOSE\tSTATUS\tAMOUNT\tCUSTOMER\tCREATED")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%s\t%s\n",
					r.ID, r.PaymentID, r.Purpose, r.Status, r.Amount.StringFixed(2), r.Currency,
					r.UserName, r.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING_RESTORE, RESTORED, FAILED)")
	cmd.Flags().StringVar(&purpose, "purpose", "", "Filter by purpose (service_booking, buy_books)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of records")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	var operator string
	cmd := &cobra.Command{
		Use:   "restore <record-id>",
		Short: "Restore one failed payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := connect(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			engine := app.NewEngine(app.NewStores(rt.db), rt.rdb, config.LoadAMQPConfig(), config.LoadReconcileConfig(), rt.log)
			out, err := engine.Restore(cmd.Context(), args[0], operator)
			if err == nil {
				rt.afterRestore(cmd.Context())
			}
			if out.Message != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			}
			for _, w := range out.Warnings {
				fmt.Fprintln(cmd.OutOrStdout(), "warning:", w)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&operator, "operator", os.Getenv("USER"), "Operator identity recorded as restored_by")
	return cmd
}

func newRestorePendingCmd() *cobra.Command {
	var (
		operator, status string
		workers          int
	)
	cmd := &cobra.Command{
		Use:   "restore-pending",
		Short: "Restore every record in a status, several at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := model.RestoreStatus(strings.ToUpper(status))
			if !st.Restorable() {
				return fmt.Errorf("status %q cannot be restored", status)
			}
			if strings.TrimSpace(operator) == "" {
				return reconcile.ErrOperatorRequired
			}
			rt, err := connect(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			rc := config.LoadReconcileConfig()
			if workers <= 0 {
				workers = rc.Workers
			}
			engine := app.NewEngine(app.NewStores(rt.db), rt.rdb, config.LoadAMQPConfig(), rc, rt.log)
			results, err := engine.RestoreAll(cmd.Context(), st, operator, workers)
			if err != nil {
				return err
			}

			failed := 0
			w := cmd.OutOrStdout()
			for _, r := range results {
				if r.Err != nil {
					failed++
					label := "FAILED  "
					if reconcile.Permanent(r.Err) {
						// retrying will not help until the record is corrected
						label = "REJECTED"
					}
					fmt.Fprintf(w, "%s  %s  %v\n", r.Outcome.RecordID, label, r.Err)
					continue
				}
				fmt.Fprintf(w, "%s  RESTORED  %s\n", r.Outcome.RecordID, r.Outcome.RestoredOrderID)
			}
			if failed < len(results) {
				rt.afterRestore(cmd.Context())
			}
			fmt.Fprintf(w, "\n%d restored, %d failed\n", len(results)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d restores failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", os.Getenv("USER"), "Operator identity recorded as restored_by")
	cmd.Flags().StringVar(&status, "status", string(model.StatusPendingRestore), "Restore records in this status (PENDING_RESTORE or FAILED)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent restores (default RECONCILE_WORKERS)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		operator, role, secret string
		ttl                    int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator access token for the back-office API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			tok, err := utils.NewAccessToken(secret, operator, role, ttl)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tok)
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "Operator identity (token subject)")
	cmd.Flags().StringVar(&role, "role", "STAFF", "Role claim (ADMIN or STAFF)")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (default JWT_SECRET)")
	cmd.Flags().IntVar(&ttl, "ttl", 60, "Lifetime in minutes")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the service tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := connect(cmd)
			if err != nil {
				return err
			}
			defer rt.close()
			if err := database.Migrate(cmd.Context(), rt.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
