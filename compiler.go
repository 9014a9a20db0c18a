package comicrepack

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Compiler turns a rebuilt package description into a device-format book.
// Compile returns the path of the produced file.
type Compiler interface {
	Compile(ctx context.Context, opfPath, outputName string) (string, error)
}

// DefaultKindleGenFlags are appended to every KindleGen invocation.
var DefaultKindleGenFlags = []string{"-dont_append_source"}

// KindleGen invokes the kindlegen binary.
//
// KindleGen exits non-zero for warnings as well as errors, so the exit
// status is ignored: compilation succeeded if and only if the output file
// exists afterwards.
type KindleGen struct {
	Path             string   // binary; "kindlegen" resolved via PATH when empty
	CompressionLevel int      // passed as -c<level>
	Flags            []string // nil means DefaultKindleGenFlags
}

// Compile runs kindlegen on opfPath. The output is written next to opfPath
// under outputName.
func (k KindleGen) Compile(ctx context.Context, opfPath, outputName string) (string, error) {
	bin := k.Path
	if bin == "" {
		bin = "kindlegen"
	}
	flags := k.Flags
	if flags == nil {
		flags = DefaultKindleGenFlags
	}

	args := []string{opfPath, "-c" + strconv.Itoa(k.CompressionLevel), "-o", outputName}
	args = append(args, flags...)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = filepath.Dir(opfPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	output := filepath.Join(filepath.Dir(opfPath), outputName)
	if !isRegularFile(output) {
		detail := lastLine(out.String())
		if runErr != nil && detail == "" {
			detail = runErr.Error()
		}
		return "", fmt.Errorf("comicrepack: %s produced no %s (%s): %w", bin, outputName, detail, ErrCompilationFailed)
	}
	return output, nil
}

// lastLine returns the last non-blank line of s.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
