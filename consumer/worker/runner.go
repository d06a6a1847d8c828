package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrAnnotationTimeout marks a run killed by the deadline. The worker treats
// it as a terminal job failure, not a transient one, so the message is acked
// and the replica is released.
var ErrAnnotationTimeout = errors.New("annotation run exceeded deadline")

// AnnotatorRunner executes the external annotation binary with an enforced
// wall-clock limit.
type AnnotatorRunner struct {
	BinaryPath string
	Timeout    time.Duration
}

func NewAnnotatorRunner(binaryPath string, timeout time.Duration) *AnnotatorRunner {
	return &AnnotatorRunner{BinaryPath: binaryPath, Timeout: timeout}
}

func (r *AnnotatorRunner) Run(ctx context.Context, inputPath, jobID, userID, email string) error {
	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.BinaryPath, inputPath, jobID, userID, email)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %s", ErrAnnotationTimeout, r.Timeout)
	}
	if stderr.Len() > 0 {
		return fmt.Errorf("annotator failed: %v: %s", err, stderr.String())
	}
	return fmt.Errorf("annotator failed: %w", err)
}
