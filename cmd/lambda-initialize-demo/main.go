// Command lambda-initialize-demo serves the Custom::InitializeDemo custom resource.
//
// Build it for the provided.al2023 runtime as "bootstrap" in the
// lambda-initialize-demo directory of the stack's Lambda assets.
package main

import (
	"github.com/plexusone/patterns-aws-cdk/internal/demoartifact"
	"github.com/plexusone/patterns-aws-cdk/internal/lambdaapp"
	"go.uber.org/fx"
)

func main() {
	fx.New(lambdaapp.Lambda(demoartifact.Provide())).Run()
}
