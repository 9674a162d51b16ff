package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-citizen-client/internal/domain"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the signed-in profile",
}

var profileUpdate struct {
	name, mobile, city, email string
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields",
	Long: `Update profile fields of the signed-in user. The change is kept on this
device; it is not sent to the backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch domain.UserPatch
		flags := cmd.Flags()
		if flags.Changed("name") {
			patch.FullName = &profileUpdate.name
		}
		if flags.Changed("mobile") {
			patch.Mobile = &profileUpdate.mobile
		}
		if flags.Changed("city") {
			patch.City = &profileUpdate.city
		}
		if flags.Changed("email") {
			patch.Email = &profileUpdate.email
		}
		if patch.FullName == nil && patch.Mobile == nil && patch.City == nil && patch.Email == nil {
			return fmt.Errorf("nothing to update: pass at least one of --name, --mobile, --city, --email")
		}

		if err := current.manager.UpdateUser(cmd.Context(), patch); err != nil {
			return err
		}

		snap := current.manager.Snapshot()
		if output == "json" {
			return printValue(cmd.OutOrStdout(), snap.Session.User)
		}
		printProfile(cmd.OutOrStdout(), snap)
		return nil
	},
}

func init() {
	profileUpdateCmd.Flags().StringVar(&profileUpdate.name, "name", "", "Full name")
	profileUpdateCmd.Flags().StringVar(&profileUpdate.mobile, "mobile", "", "Mobile number")
	profileUpdateCmd.Flags().StringVar(&profileUpdate.city, "city", "", "City")
	profileUpdateCmd.Flags().StringVar(&profileUpdate.email, "email", "", "Email")

	profileCmd.AddCommand(profileUpdateCmd)
	rootCmd.AddCommand(profileCmd)
}
