package cli

import (
	"bytes"
	"context"
	"io"
	"os/exec"

	"github.com/unhoist/unhoist/pkg/npm"
)

// yarnInfoRunner adapts the yarn executable to the fetcher's InfoRunner
// contract. Both streams are captured fully before parsing; yarn exits
// non-zero for unknown packages while still printing diagnostic records, so a
// failed exit with output is handed to the parser rather than treated as an
// invocation error.
func yarnInfoRunner(bin, dir string) npm.InfoRunner {
	return func(ctx context.Context, name string) (io.Reader, io.Reader, error) {
		cmd := exec.CommandContext(ctx, bin, "info", name, "--json")
		cmd.Dir = dir

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if stdout.Len() == 0 && stderr.Len() == 0 {
				return nil, nil, err
			}
		}
		return &stdout, &stderr, nil
	}
}
