package cli

import (
	"fmt"
	"os"

	"github.com/roach88/seanodes/internal/harness"
)

// expandScenarioArgs replaces directory arguments with the scenario files
// they contain.
func expandScenarioArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("path not found: %s", arg))
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := harness.FindScenarioFiles(arg)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		files = append(files, found...)
	}
	return files, nil
}
