// Command lambda-subnet-to-az serves the Custom::SubnetToAz custom resource.
//
// Build it for the provided.al2023 runtime as "bootstrap" in the
// lambda-subnet-to-az directory of the stack's Lambda assets.
package main

import (
	"github.com/plexusone/patterns-aws-cdk/internal/subnettoaz"
	"github.com/plexusone/patterns-aws-cdk/internal/lambdaapp"
	"go.uber.org/fx"
)

func main() {
	fx.New(lambdaapp.Lambda(subnettoaz.Provide())).Run()
}
