// Package gitutil reads the revision a build was produced from.
package gitutil

import (
	"os/exec"
	"strings"
)

// IsGitRepo checks if the given path is inside a git repository.
func IsGitRepo(root string) bool {
	cmd := exec.Command("git", "-C", root, "rev-parse", "--git-dir")
	return cmd.Run() == nil
}

// HeadCommit returns the current HEAD commit hash.
func HeadCommit(root string) (string, error) {
	cmd := exec.Command("git", "-C", root, "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// IsDirty reports whether paths have staged, unstaged or untracked changes.
// With no paths the whole worktree is inspected.
func IsDirty(root string, paths ...string) (bool, error) {
	args := append([]string{"-C", root, "status", "--porcelain", "--"}, paths...)
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// Describe returns HEAD with a "-dirty" suffix when paths have local
// changes. It returns "" outside a repository or before the first commit.
func Describe(root string, paths ...string) string {
	if !IsGitRepo(root) {
		return ""
	}
	head, err := HeadCommit(root)
	if err != nil {
		return ""
	}
	if dirty, err := IsDirty(root, paths...); err == nil && dirty {
		return head + "-dirty"
	}
	return head
}
