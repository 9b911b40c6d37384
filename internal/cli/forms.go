// forms.go implements the "formcourier forms" command for listing and
// downloading forms.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var formsCmd = &cobra.Command{
	Use:   "forms",
	Short: "List locally cached forms",
	RunE:  runFormsList,
}

var formsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download available forms from the server into the local cache",
	RunE:  runFormsFetch,
}

func init() {
	formsCmd.AddCommand(formsFetchCmd)
}

func runFormsList(cmd *cobra.Command, args []string) error {
	forms, err := app.Store.GetForms()
	if err != nil {
		return fmt.Errorf("listing forms: %w", err)
	}
	if len(forms) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No forms cached. Run: formcourier forms fetch")
		return nil
	}
	for _, f := range forms {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-5d %-30s %d questions\n", f.FormID, f.Title, len(f.Questions))
	}
	return nil
}

func runFormsFetch(cmd *cobra.Command, args []string) error {
	client, err := app.Client()
	if err != nil {
		return err
	}
	forms, err := client.FetchForms(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching forms: %w", err)
	}

	saved := 0
	for _, f := range forms {
		if err := f.Validate(); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Skipping form %d (%s): %v\n", f.FormID, f.Title, err)
			continue
		}
		if err := app.Store.SaveForm(f); err != nil {
			return fmt.Errorf("caching form %d: %w", f.FormID, err)
		}
		saved++
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cached %d form(s).\n", saved)
	return nil
}
