package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

type ChangedFile struct {
	// Path is relative to the repository root, new side of the diff.
	Path         string
	ChangedLines []int
	Deleted      bool
	// OldPath is the source of a rename, empty otherwise.
	OldPath string
}

// chunkHeader matches "@@ -oldStart,oldLen +newStart,newLen @@"; only the + side is used.
var chunkHeader = regexp.MustCompile(`^@@ \-\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// GetChangedFiles runs git diff in dir and returns a list of changed files with line numbers.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "-U0", baseRef)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	return parseDiff(output)
}

// RepoRoot returns the top-level directory of the repository containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return filepath.Clean(strings.TrimSpace(string(output))), nil
}

// FilterExt keeps the changes whose path, or renamed-from path, ends in ext.
func FilterExt(changes []ChangedFile, ext string) []ChangedFile {
	var out []ChangedFile
	for _, c := range changes {
		if strings.HasSuffix(c.Path, ext) || (c.OldPath != "" && strings.HasSuffix(c.OldPath, ext)) {
			out = append(out, c)
		}
	}
	return out
}

func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var changes []ChangedFile
	var currentFile *ChangedFile

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git") {
			// a/path/to/file b/path/to/file; the b/ path is the new version
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				if currentFile != nil {
					changes = append(changes, *currentFile)
				}
				currentFile = &ChangedFile{Path: strings.TrimPrefix(parts[3], "b/"), ChangedLines: []int{}}
			}
			continue
		}

		if currentFile == nil {
			continue
		}

		if line == "+++ /dev/null" {
			currentFile.Deleted = true
			continue
		}

		if from, ok := strings.CutPrefix(line, "rename from "); ok {
			currentFile.OldPath = from
			continue
		}
		if to, ok := strings.CutPrefix(line, "rename to "); ok {
			currentFile.Path = to
			continue
		}

		if strings.HasPrefix(line, "@@") {
			matches := chunkHeader.FindStringSubmatch(line)
			if len(matches) > 1 {
				startLine, _ := strconv.Atoi(matches[1])
				count := 1 // Default length is 1 if omitted
				if len(matches) > 2 && matches[2] != "" {
					count, _ = strconv.Atoi(matches[2])
				}

				// A count of 0 is a pure deletion: no line exists on the new side.
				for i := 0; i < count; i++ {
					currentFile.ChangedLines = append(currentFile.ChangedLines, startLine+i)
				}
			}
		}
	}

	if currentFile != nil {
		changes = append(changes, *currentFile)
	}

	return changes, scanner.Err()
}
