package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"veil/internal/app"
	"veil/internal/domain"
)

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect or change the global or per-contact encryption policy",
	}
	cmd.AddCommand(policyGetCmd(), policySetCmd(), policyClearCmd())
	return cmd
}

func printPolicy(w io.Writer, scope string, p domain.Policy) {
	fmt.Fprintf(w, "%s: manual=%t auto-start=%t require=%t advertise=%t\n",
		scope, p.EnableManual, p.EnableAutoStart, p.RequireEncryption, p.SendAdvertisement)
}

func policyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [party]",
		Short: "Show the global policy or the effective policy of a contact",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				printPolicy(cmd.OutOrStdout(), "global", a.Policies.GlobalPolicy())
				return nil
			}
			party := a.Peer(args[0])
			scope := args[0] + " (global)"
			if _, ok := a.Policies.ContactPolicy(party); ok {
				scope = args[0] + " (override)"
			}
			printPolicy(cmd.OutOrStdout(), scope, a.Policies.EffectivePolicy(party))
			return nil
		},
	}
}

func policySetCmd() *cobra.Command {
	var manual, auto, required, advertise bool
	cmd := &cobra.Command{
		Use:   "set [party]",
		Short: "Store the global policy or a contact override",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			p := domain.Policy{
				EnableManual:      manual,
				EnableAutoStart:   auto,
				RequireEncryption: required,
				SendAdvertisement: advertise,
			}
			return writePolicy(cmd, a, args, &p)
		},
	}
	def := domain.DefaultPolicy()
	cmd.Flags().BoolVar(&manual, "manual", def.EnableManual, "allow starting sessions by hand")
	cmd.Flags().BoolVar(&auto, "auto-start", def.EnableAutoStart, "start sessions automatically")
	cmd.Flags().BoolVar(&required, "require", def.RequireEncryption, "refuse to send plaintext")
	cmd.Flags().BoolVar(&advertise, "advertise", def.SendAdvertisement, "tag plaintext to advertise support")
	return cmd
}

func policyClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [party]",
		Short: "Remove a contact override, or reset the global policy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return writePolicy(cmd, a, args, nil)
		},
	}
}

func writePolicy(cmd *cobra.Command, a *app.App, args []string, p *domain.Policy) error {
	if len(args) == 0 {
		if err := a.Policies.SetGlobalPolicy(p); err != nil {
			return err
		}
		printPolicy(cmd.OutOrStdout(), "global", a.Policies.GlobalPolicy())
		return nil
	}
	party := a.Peer(args[0])
	if err := a.Policies.SetContactPolicy(party, p); err != nil {
		return err
	}
	printPolicy(cmd.OutOrStdout(), args[0], a.Policies.EffectivePolicy(party))
	return nil
}
