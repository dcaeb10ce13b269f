// push-secrets pushes credentials from .env files to AWS Secrets Manager.
//
// It reads <NAME>_USERNAME and <NAME>_PASSWORD pairs and upserts one secret
// per name as {stack}/{name}/secret, in the {"username", "password"} shape the
// stack's DbSecret and Secret constructs use. Pass the printed ARN as the
// construct's Arn parameter to use it instead of a generated secret.
//
// Usage:
//
//	push-secrets [flags] [env-file]
//
// Examples:
//
//	push-secrets --stack my-app .env          # Push DB_* and RABBITMQ_* pairs
//	push-secrets --region us-west-2 .env      # Push to a specific region
//	push-secrets --dry-run                    # Preview without creating
//
// Install:
//
//	go install github.com/plexusone/patterns-aws-cdk/cmd/push-secrets@latest
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/fatih/color"
	"github.com/plexusone/patterns-aws-cdk/internal/secrets"
	"github.com/plexusone/patterns-aws-cdk/internal/stackinfo"
	"github.com/spf13/cobra"
)

type options struct {
	region  string
	stack   string
	dryRun  bool
	verbose bool
}

func newCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "push-secrets [env-file]",
		Short: "Push credentials from a .env file to AWS Secrets Manager",
		Long: `Push <NAME>_USERNAME and <NAME>_PASSWORD pairs to AWS Secrets Manager.

If env-file is not specified, searches in order:
  1. .env (current directory)
  2. ../.env (parent directory)
  3. ~/.plexusone/projects/{stack}/.env
  4. ~/.plexusone/.env (global fallback)

The stack is auto-detected from the stackName in config.json or config.yaml.

Secrets:
  {stack}/db/secret        DB_USERNAME, DB_PASSWORD
  {stack}/{name}/secret    {NAME}_USERNAME, {NAME}_PASSWORD`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.stack == "" {
				opts.stack = stackinfo.DetectStackName()
			}

			envFile := ""
			if len(args) == 1 {
				envFile = args[0]
			} else {
				found, err := secrets.FindEnvFile(opts.stack)
				if err != nil {
					return err
				}
				envFile = found
			}

			return run(cmd.Context(), envFile, opts)
		},
	}

	cmd.Flags().StringVar(&opts.region, "region", "", "AWS region (default: AWS_REGION or us-east-1)")
	cmd.Flags().StringVar(&opts.stack, "stack", "", "Stack name used in secret names (default: auto-detect)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Preview changes without creating secrets")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Show verbose output")

	return cmd
}

func main() {
	if err := newCommand().ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile string, opts options) error {
	region := stackinfo.Region(opts.region)

	fmt.Printf("Reading from: %s\n", envFile)
	env, err := secrets.ReadEnvFile(envFile)
	if err != nil {
		return err
	}

	groups := secrets.GroupEnv(env)
	if opts.verbose {
		for _, g := range groups {
			fmt.Printf("  Found %s credentials\n", g.Name)
		}
	}

	fmt.Printf("AWS Region: %s\n", region)
	fmt.Printf("Stack: %s\n", opts.stack)
	if opts.dryRun {
		fmt.Printf("Mode: DRY RUN (no changes will be made)\n")
	}
	fmt.Println()

	if len(groups) == 0 {
		fmt.Println("No credentials found")
		return nil
	}

	var pusher *secrets.Pusher
	if opts.dryRun {
		pusher = secrets.NewPusher(nil, nil, true)
	} else {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		pusher = secrets.NewPusher(secretsmanager.NewFromConfig(cfg), ssm.NewFromConfig(cfg), false)
	}

	for _, g := range groups {
		if err := push(ctx, pusher, opts.stack, g, opts.dryRun); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println("Done!")
	fmt.Println()
	fmt.Printf("To verify:\n")
	fmt.Printf("  aws secretsmanager list-secrets --region %s --filter Key=name,Values=%s/ --no-cli-pager\n", region, opts.stack)

	return nil
}

func push(ctx context.Context, pusher *secrets.Pusher, stack string, g secrets.Group, dryRun bool) error {
	fmt.Printf("Creating/updating: %s\n", secrets.SecretName(stack, g.Name))

	if dryRun {
		fmt.Printf("  [DRY RUN] Would create with: %s\n", g.Masked())
		return nil
	}

	res, err := pusher.Push(ctx, stack, g)
	if err != nil {
		return err
	}

	switch {
	case res.ManagedArn != "":
		color.New(color.FgYellow).Printf("  Warning: stack %s manages %s (%s), not overwriting\n", stack, g.Name, res.ManagedArn)
		return nil
	case res.Created:
		fmt.Printf("  Created new secret\n")
	default:
		fmt.Printf("  Updated existing secret\n")
	}
	color.New(color.FgGreen).Printf("  ARN: %s\n", res.Arn)

	return nil
}
