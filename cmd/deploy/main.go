// deploy orchestrates the deployment of a patterns stack.
//
// It handles:
//  1. Pushing credentials from .env to AWS Secrets Manager
//  2. Bootstrapping AWS CDK
//  3. Deploying the CDK stack with parameters from a YAML file
//  4. Printing the stack outputs
//
// Usage:
//
//	deploy [flags]
//
// Examples:
//
//	deploy                              # Deploy from current directory
//	deploy --params params.yaml         # Pass CloudFormation parameters
//	deploy --region us-west-2           # Deploy to specific region
//	deploy --dry-run                    # Preview with cdk diff
//	deploy --skip-secrets               # Skip secrets push (if already created)
//
// Install:
//
//	go install github.com/plexusone/patterns-aws-cdk/cmd/deploy@latest
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/fatih/color"
	"github.com/plexusone/patterns-aws-cdk/internal/secrets"
	"github.com/plexusone/patterns-aws-cdk/internal/stackinfo"
	"github.com/spf13/cobra"
)

type options struct {
	region        string
	envFile       string
	paramsFile    string
	stack         string
	dryRun        bool
	skipSecrets   bool
	skipBootstrap bool
	verbose       bool
}

var heading = color.New(color.Bold, color.FgCyan)

func newCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a patterns stack with AWS CDK",
		Long: `Deploy a patterns stack with AWS CDK.

Env file search order (if --env not specified):
  1. .env (current directory)
  2. ../.env (parent directory)
  3. ~/.plexusone/projects/{stack}/.env
  4. ~/.plexusone/.env (global fallback)

The stack is auto-detected from the stackName in config.json or config.yaml.

Steps:
  1. Push credentials from .env to AWS Secrets Manager
  2. Bootstrap AWS CDK (if needed)
  3. Deploy CDK stack
  4. Print stack outputs`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.region, "region", "", "AWS region (default: AWS_REGION or us-east-1)")
	cmd.Flags().StringVar(&opts.envFile, "env", "", "Path to .env file (default: auto-detect)")
	cmd.Flags().StringVar(&opts.paramsFile, "params", "", "YAML file with CloudFormation parameter values")
	cmd.Flags().StringVar(&opts.stack, "stack", "", "Stack name (default: auto-detect)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Preview changes without deploying")
	cmd.Flags().BoolVar(&opts.skipSecrets, "skip-secrets", false, "Skip pushing secrets")
	cmd.Flags().BoolVar(&opts.skipBootstrap, "skip-bootstrap", false, "Skip CDK bootstrap")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Show verbose output")

	return cmd
}

func main() {
	if err := newCommand().ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	region := stackinfo.Region(opts.region)
	if opts.stack == "" {
		opts.stack = stackinfo.DetectStackName()
	}

	var params map[string]string
	if opts.paramsFile != "" {
		var err error
		if params, err = stackinfo.LoadParameters(opts.paramsFile); err != nil {
			return err
		}
	}

	heading.Println("=== Patterns Stack Deployment ===")
	fmt.Println()
	fmt.Printf("Region: %s\n", region)
	fmt.Printf("Stack: %s\n", opts.stack)
	fmt.Printf("Working directory: %s\n", mustGetwd())
	if opts.dryRun {
		fmt.Println("Mode: DRY RUN (no changes will be made)")
	}
	fmt.Println()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	identity, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("getting AWS identity: %w", err)
	}
	accountID := aws.ToString(identity.Account)
	fmt.Printf("AWS Account: %s\n", accountID)
	fmt.Println()

	if !opts.skipSecrets {
		heading.Println("=== Step 1: Push Secrets ===")
		if err := pushSecrets(ctx, cfg, opts); err != nil {
			return fmt.Errorf("pushing secrets: %w", err)
		}
	} else {
		heading.Println("=== Step 1: Skipping secrets (--skip-secrets) ===")
	}
	fmt.Println()

	if !opts.skipBootstrap {
		heading.Println("=== Step 2: Bootstrap CDK ===")
		bootstrapCDK(ctx, accountID, region, opts.dryRun)
	} else {
		heading.Println("=== Step 2: Skipping bootstrap (--skip-bootstrap) ===")
	}
	fmt.Println()

	heading.Println("=== Step 3: Deploy ===")
	if err := deployCDK(ctx, opts.stack, params, opts.dryRun); err != nil {
		return fmt.Errorf("deploying: %w", err)
	}
	fmt.Println()

	if opts.dryRun {
		heading.Println("=== Dry Run Complete ===")
		return nil
	}

	heading.Println("=== Step 4: Outputs ===")
	outputs, err := stackinfo.Outputs(ctx, cloudformation.NewFromConfig(cfg), opts.stack)
	if err != nil {
		return err
	}
	for _, o := range outputs {
		fmt.Printf("  %s: %s\n", o.Key, o.Value)
		if opts.verbose && o.Description != "" {
			fmt.Printf("    %s\n", o.Description)
		}
	}
	fmt.Println()
	heading.Println("=== Deployment Complete ===")

	return nil
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func findEnvFile(envFile, stack string) (string, bool) {
	if envFile == "" {
		path, err := secrets.FindEnvFile(stack)
		return path, err == nil
	}

	if _, err := os.Stat(envFile); err == nil || filepath.IsAbs(envFile) {
		return envFile, err == nil
	}

	parent := filepath.Join("..", envFile)
	_, err := os.Stat(parent)

	return parent, err == nil
}

// pushSecrets pushes credential pairs to AWS Secrets Manager
func pushSecrets(ctx context.Context, cfg aws.Config, opts options) error {
	envPath, ok := findEnvFile(opts.envFile, opts.stack)
	if !ok {
		fmt.Println("No .env file found, skipping secrets push")
		return nil
	}
	fmt.Printf("Reading from: %s\n", envPath)

	env, err := secrets.ReadEnvFile(envPath)
	if err != nil {
		return err
	}

	groups := secrets.GroupEnv(env)
	if len(groups) == 0 {
		fmt.Println("  No credentials found")
		return nil
	}

	pusher := secrets.NewPusher(secretsmanager.NewFromConfig(cfg), ssm.NewFromConfig(cfg), opts.dryRun)
	for _, g := range groups {
		res, err := pusher.Push(ctx, opts.stack, g)
		if err != nil {
			return err
		}

		switch {
		case opts.dryRun:
			fmt.Printf("  %s: [DRY RUN] Would create/update with %s\n", res.SecretName, g.Masked())
		case res.ManagedArn != "":
			color.New(color.FgYellow).Printf("  %s: managed by the stack, not overwriting\n", res.SecretName)
		default:
			fmt.Printf("  %s: %s\n", res.SecretName, res.Arn)
		}
	}

	return nil
}

// bootstrapCDK runs cdk bootstrap
func bootstrapCDK(ctx context.Context, accountID, region string, dryRun bool) {
	target := fmt.Sprintf("aws://%s/%s", accountID, region)
	fmt.Printf("Bootstrap target: %s\n", target)

	if dryRun {
		fmt.Println("[DRY RUN] Would run: cdk bootstrap " + target)
		return
	}

	//nolint:gosec // G204: target is built from AWS SDK values
	cmd := exec.CommandContext(ctx, "cdk", "bootstrap", target)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Println("  Bootstrap completed (or already bootstrapped)")
	}
}

// deployCDK runs cdk deploy, or cdk diff on a dry run
func deployCDK(ctx context.Context, stack string, params map[string]string, dryRun bool) error {
	if dryRun {
		fmt.Println("Running cdk diff...")
		cmd := exec.CommandContext(ctx, "cdk", "diff", stack)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		_ = cmd.Run() // diff exits non-zero when there are differences
		return nil
	}

	args := append([]string{"deploy", stack, "--require-approval", "never"}, stackinfo.ParameterArgs(stack, params)...)
	fmt.Printf("Running cdk deploy with %d parameter(s)...\n", len(params))

	//nolint:gosec // G204: arguments come from the operator's own parameters file
	cmd := exec.CommandContext(ctx, "cdk", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
