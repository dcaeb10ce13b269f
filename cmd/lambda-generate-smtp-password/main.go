// Command lambda-generate-smtp-password serves the Custom::GenerateSmtpPassword custom resource.
//
// Build it for the provided.al2023 runtime as "bootstrap" in the
// lambda-generate-smtp-password directory of the stack's Lambda assets.
package main

import (
	"github.com/plexusone/patterns-aws-cdk/internal/smtppassword"
	"github.com/plexusone/patterns-aws-cdk/internal/lambdaapp"
	"go.uber.org/fx"
)

func main() {
	fx.New(lambdaapp.Lambda(smtppassword.Provide())).Run()
}
