package cmd

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"billed/internal/bills"
	"billed/internal/core"
	"billed/internal/newbill"
	"billed/internal/store"
)

var listSort bool

// newBillFlags maps each flag of "bills new" to the form field it fills.
var newBillFlags = []struct {
	flag, field, usage string
}{
	{"type", core.FieldExpenseType, "expense type, e.g. Transports"},
	{"name", core.FieldExpenseName, "expense name"},
	{"date", core.FieldDate, "expense date (YYYY-MM-DD)"},
	{"amount", core.FieldAmount, "amount, whole units"},
	{"vat", core.FieldVAT, "VAT amount"},
	{"pct", core.FieldPct, "VAT percentage (default 20)"},
	{"commentary", core.FieldCommentary, "free comment"},
	{"file", core.FieldFile, "receipt image (jpg, jpeg or png)"},
}

// newBillValues holds the flag values keyed by form field.
var newBillValues = map[string]*string{}

var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "List and submit bills",
}

var billsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bills",
	Long: `List every bill from the store with its date and status formatted
for display. Use --sort to show the newest bills first.`,
	Args: cobra.NoArgs,
	RunE: runBillsList,
}

var billsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Submit a new bill",
	Long: `Submit a new bill for the logged in user. When --file is given the
receipt is uploaded first and the bill is attached to it.`,
	Args: cobra.NoArgs,
	RunE: runBillsNew,
}

var billsReceiptCmd = &cobra.Command{
	Use:   "receipt [bill-id]",
	Short: "Print the receipt URL of a bill",
	Args:  cobra.ExactArgs(1),
	RunE:  runBillsReceipt,
}

func init() {
	billsListCmd.Flags().BoolVar(&listSort, "sort", false, "sort by date, newest first")

	for _, f := range newBillFlags {
		newBillValues[f.field] = billsNewCmd.Flags().String(f.flag, "", f.usage)
	}

	billsCmd.AddCommand(billsListCmd, billsNewCmd, billsReceiptCmd)
	rootCmd.AddCommand(billsCmd)
}

func newReader(cmd *cobra.Command) (*bills.Reader, error) {
	st, err := newStore()
	if err != nil {
		return nil, err
	}
	var lister store.BillLister = st
	if listSort {
		lister = bills.NewestFirst(st)
	}
	return bills.NewReader(lister, navigator(cmd), slog.Default()), nil
}

func runBillsList(cmd *cobra.Command, _ []string) error {
	reader, err := newReader(cmd)
	if err != nil {
		return err
	}
	list, err := reader.Bills(cmd.Context())
	if err != nil {
		return fmt.Errorf("list bills: %w", err)
	}
	if len(list) == 0 {
		cmd.Println("No bills yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tNAME\tAMOUNT\tVAT\tPCT\tSTATUS\tRECEIPT")
	for _, b := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d%%\t%s\t%s\n",
			b.ID, b.Date, b.Type, b.Name, amountCell(b.Amount), b.VAT, b.Pct, b.Status, receiptCell(b.FileName))
	}
	return w.Flush()
}

// newBillForm reads the flags through the form field identifiers and
// returns the form with the receipt path, if any.
func newBillForm() (core.BillForm, string) {
	values := url.Values{}
	for field, v := range newBillValues {
		if *v != "" {
			values.Set(field, *v)
		}
	}
	return core.FormFromValues(values), strings.TrimSpace(values.Get(core.FieldFile))
}

func runBillsNew(cmd *cobra.Command, _ []string) error {
	st, err := newStore()
	if err != nil {
		return err
	}
	sessions, err := newSessionProvider()
	if err != nil {
		return err
	}
	nav := navigator(cmd)
	bills.NewReader(st, nav, slog.Default()).NewBill()

	sub := newbill.New(st, nav, sessions, slog.Default())
	ctx := cmd.Context()
	form, receiptPath := newBillForm()

	if receiptPath != "" {
		data, err := os.ReadFile(receiptPath)
		if err != nil {
			return fmt.Errorf("read receipt: %w", err)
		}
		file := core.ReceiptFile{Name: filepath.Base(receiptPath), Content: data}
		if err := sub.ChangeFile(ctx, file); err != nil {
			return err
		}
		if url, name, ok := sub.Receipt(); ok {
			cmd.Printf("Receipt uploaded: %s (%s)\n", name, url)
		}
	}

	if err := sub.Submit(ctx, form); err != nil {
		return err
	}
	cmd.Println("Bill submitted.")
	return nil
}

func runBillsReceipt(cmd *cobra.Command, args []string) error {
	reader, err := newReader(cmd)
	if err != nil {
		return err
	}
	list, err := reader.Bills(cmd.Context())
	if err != nil {
		return fmt.Errorf("list bills: %w", err)
	}
	for _, b := range list {
		if b.ID != args[0] {
			continue
		}
		url, err := reader.Receipt(b)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	}
	return fmt.Errorf("bill %s: %w", args[0], store.ErrNotFound)
}

func amountCell(a *int) string {
	if a == nil {
		return "-"
	}
	return strconv.Itoa(*a)
}

func receiptCell(name *string) string {
	if name == nil || *name == "" {
		return "-"
	}
	return *name
}
