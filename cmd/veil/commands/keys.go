package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"veil/internal/domain"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate the local key pair, replacing any existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Trust.GenerateKeyPair(a.Account); err != nil {
				return err
			}
			fp, _ := a.Trust.LocalFingerprint(a.Account)
			fmt.Fprintf(cmd.OutOrStdout(), "Key pair created.\nFingerprint: %s\n", fp)
			return nil
		},
	}
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the local fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			fp, ok := a.Trust.LocalFingerprint(a.Account)
			if !ok {
				return fmt.Errorf("no key pair for %s, run keygen first", a.Account)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fp)
			return nil
		},
	}
}

func fingerprintsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprints <party>",
		Short: "List fingerprints on file for a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			party := a.Peer(args[0])
			fps := a.Trust.AllFingerprints(party)
			if len(fps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No fingerprints for %s\n", args[0])
				return nil
			}
			for _, fp := range fps {
				state := "unverified"
				if a.Trust.IsVerified(party, fp) {
					state = "verified"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", fp, state)
			}
			return nil
		},
	}
}

func verifyCmd(verified bool) *cobra.Command {
	use, short := "verify", "Mark a contact fingerprint as verified"
	if !verified {
		use, short = "unverify", "Clear the verified flag of a contact fingerprint"
	}
	return &cobra.Command{
		Use:   use + " <party> <fingerprint>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			party := a.Peer(args[0])
			fp := domain.Fingerprint(args[1])
			id := a.Identity(party, "")
			if verified {
				a.Trust.Verify(id, fp)
			} else {
				a.Trust.Unverify(id, fp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: verified=%t\n", args[0], fp, a.Trust.IsVerified(party, fp))
			return nil
		},
	}
}
