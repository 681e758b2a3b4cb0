package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/citypulse/internal/config"
)

var policyDefault bool

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show or validate module policies",
	Long: `Every module reads its intervals, walks, tiers and weights from a YAML
policy. The embedded default can be overridden with --policy or
CITYPULSE_POLICY_FILE; values missing from the file keep their defaults.

Examples:
  citypulse policy show
  citypulse policy show --default > my-policy.yaml
  citypulse policy validate my-policy.yaml`,
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective policy as YAML",
	RunE:  runPolicyShow,
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a policy file without running anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyValidate,
}

func init() {
	policyShowCmd.Flags().BoolVar(&policyDefault, "default", false, "print the embedded default with its comments")

	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyValidateCmd)
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	if policyDefault {
		_, err := os.Stdout.Write(config.DefaultPolicyYAML())
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(policy); err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	return enc.Close()
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.LoadPolicy(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", args[0])
	return nil
}
