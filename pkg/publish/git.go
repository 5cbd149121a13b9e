package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/isolinks/pkg/logger"
	"github.com/fulmenhq/isolinks/pkg/safeio"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitOptions configures commits of the results file.
type GitOptions struct {
	Remote string
	Branch string
	// AuthorName and AuthorEmail override the repository's user config.
	AuthorName  string
	AuthorEmail string
	// Token, when set, authenticates https pushes.
	Token string
	// NoPush stops after the commit.
	NoPush bool
}

// GitResult reports what Publish did.
type GitResult struct {
	Committed bool
	Pushed    bool
	Commit    string
}

// GitPublisher commits and pushes the results file.
type GitPublisher struct {
	repo *git.Repository
	opts GitOptions
	now  func() time.Time
}

// OpenGitPublisher opens the repository containing dir.
func OpenGitPublisher(dir string, opts GitOptions) (*GitPublisher, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", dir, err)
	}
	return NewGitPublisher(repo, opts), nil
}

// NewGitPublisher wraps an open repository.
func NewGitPublisher(repo *git.Repository, opts GitOptions) *GitPublisher {
	if opts.Remote == "" {
		opts.Remote = git.DefaultRemoteName
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	return &GitPublisher{repo: repo, opts: opts, now: time.Now}
}

// Publish stages file, commits it as "Update <file>" and pushes the branch.
// Nothing happens when the file has no changes.
func (p *GitPublisher) Publish(ctx context.Context, file string) (GitResult, error) {
	var res GitResult

	wt, err := p.repo.Worktree()
	if err != nil {
		return res, fmt.Errorf("failed to open worktree: %w", err)
	}
	rel, err := p.relative(wt.Filesystem.Root(), file)
	if err != nil {
		return res, err
	}

	status, err := wt.Status()
	if err != nil {
		return res, fmt.Errorf("failed to read git status: %w", err)
	}
	fs, tracked := status[rel]
	if !tracked || (fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified) {
		logger.Info("No changes to commit", logger.String("file", rel))
		return res, nil
	}

	if _, err := wt.Add(rel); err != nil {
		return res, fmt.Errorf("git add %s: %w", rel, err)
	}

	commitOpts := &git.CommitOptions{}
	if p.opts.AuthorName != "" {
		commitOpts.Author = &object.Signature{
			Name:  p.opts.AuthorName,
			Email: p.opts.AuthorEmail,
			When:  p.now(),
		}
	}
	hash, err := wt.Commit("Update "+filepath.Base(rel), commitOpts)
	if err != nil {
		return res, fmt.Errorf("git commit: %w", err)
	}
	res.Committed, res.Commit = true, hash.String()
	logger.Info("Committed results", logger.String("file", rel), logger.String("commit", res.Commit))

	if p.opts.NoPush {
		return res, nil
	}

	ref := plumbing.NewBranchReferenceName(p.opts.Branch)
	push := &git.PushOptions{
		RemoteName: p.opts.Remote,
		RefSpecs:   []config.RefSpec{config.RefSpec("HEAD:" + ref.String())},
		Auth:       p.auth(),
	}
	if err := p.repo.PushContext(ctx, push); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return res, nil
		}
		return res, fmt.Errorf("git push %s %s: %w", p.opts.Remote, p.opts.Branch, err)
	}
	res.Pushed = true
	logger.Info("Pushed results", logger.String("remote", p.opts.Remote), logger.String("branch", p.opts.Branch))
	return res, nil
}

func (p *GitPublisher) auth() transport.AuthMethod {
	if p.opts.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: p.opts.Token}
}

// relative maps file to a slash path inside the worktree rooted at root.
func (p *GitPublisher) relative(root, file string) (string, error) {
	if !filepath.IsAbs(file) {
		return safeio.CleanUserPath(file)
	}
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository at %s", file, root)
	}
	return filepath.ToSlash(rel), nil
}
