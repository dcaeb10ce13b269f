package patterns

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type buildSpec struct {
	Version   float64            `yaml:"version"`
	Phases    buildSpecPhases    `yaml:"phases"`
	Artifacts buildSpecArtifacts `yaml:"artifacts"`
}

type buildSpecPhases struct {
	Build buildSpecPhase `yaml:"build"`
}

type buildSpecPhase struct {
	Commands []string `yaml:"commands"`
	Finally  []string `yaml:"finally,omitempty"`
}

type buildSpecArtifacts struct {
	Files []string `yaml:"files"`
}

const appSpec = `cat << EOF > appspec.yml;
version: 0.0
os: linux
hooks:
  AfterInstall:
    - location: after-install.sh
      runas: root
EOF
`

// afterInstallScript writes after-install.sh, the CodeDeploy AfterInstall
// hook, and appspec.yml into the build output.
func afterInstallScript(afterDeployCommands []string) string {
	var b strings.Builder
	b.WriteString("cat << EOF > after-install.sh;\n")
	b.WriteString("#!/bin/bash\n")
	b.WriteString(`echo "$(date): Starting after-install.sh..."` + "\n")
	b.WriteString("###\n# Custom Commands\n###\n")
	for _, cmd := range afterDeployCommands {
		b.WriteString(cmd + "\n")
	}
	b.WriteString(`echo "$(date): Finished after-install.sh."` + "\n")
	b.WriteString("EOF\n")
	b.WriteString(appSpec)
	return b.String()
}

// TransformBuildSpec renders the buildspec of the pipeline's transform
// project. It packages the source artifact for CodeDeploy, running
// afterBuildCommands in CodeBuild and afterDeployCommands on the instances.
func TransformBuildSpec(afterBuildCommands, afterDeployCommands []string) (string, error) {
	commands := []string{
		afterInstallScript(afterDeployCommands),
		"cat appspec.yml",
		"cat after-install.sh",
	}
	commands = append(commands, afterBuildCommands...)

	out, err := yaml.Marshal(buildSpec{
		Version: 0.2,
		Phases: buildSpecPhases{Build: buildSpecPhase{
			Commands: commands,
			Finally:  []string{"echo Finished build"},
		}},
		Artifacts: buildSpecArtifacts{Files: []string{"**/*"}},
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
