package toolpolicy

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/agentcore/runtime/pkg/models"
)

// CacheTTL is the trust-command-list cache lifetime (spec.md §4.3, §9):
// a pragma for avoiding a file re-read per command, not a security
// boundary.
const CacheTTL = 60 * time.Second

// TrustedCommandKind discriminates a configured trusted-command rule.
type TrustedCommandKind string

const (
	TrustedCommandGlob  TrustedCommandKind = "match"
	TrustedCommandRegex TrustedCommandKind = "regex"
)

// TrustedCommandRule is one user-configured trusted-command entry.
type TrustedCommandRule struct {
	Type        TrustedCommandKind `yaml:"type"`
	Command     string             `yaml:"command"`
	Description string             `yaml:"description,omitempty"`
}

// TrustedCommandsDocument is the on-disk shape of the trusted-commands
// config file.
type TrustedCommandsDocument struct {
	TrustedCommands []TrustedCommandRule `yaml:"trusted_commands"`
}

type compiledRule struct {
	glob  *regexp.Regexp // compiled from a shell glob via globToRegexp
	regex *regexp.Regexp
}

// ShellPolicy evaluates the shell trust policy from spec.md §4.3: a
// command is auto-trusted iff it contains no dangerous pattern and either
// is a read-only pipeline (every stage headed by a command in the built-in
// allow-list) or matches a configured trusted-command rule.
type ShellPolicy struct {
	path   string
	logger *slog.Logger

	mu        sync.Mutex
	rules     []compiledRule
	loadedAt  time.Time
	watcher   *fsnotify.Watcher
	forceLoad bool
}

// NewShellPolicy creates a policy backed by the trusted-commands document
// at path. The document is loaded lazily on first use.
func NewShellPolicy(path string, logger *slog.Logger) *ShellPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShellPolicy{path: path, logger: logger.With("component", "toolpolicy.shell")}
}

// WatchForChanges starts an fsnotify watch on the backing file so edits
// invalidate the TTL cache immediately instead of waiting up to CacheTTL
// (spec.md §9). The returned error is non-fatal to callers: a watch
// failure just means the TTL is the only invalidation path.
func (p *ShellPolicy) WatchForChanges(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(p.path); err != nil {
		w.Close()
		return err
	}
	p.mu.Lock()
	p.watcher = w
	p.mu.Unlock()

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					p.InvalidateCache()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				p.logger.Warn("trust policy file watch error", "error", err)
			}
		}
	}()
	return nil
}

// InvalidateCache forces the next IsTrusted call to reload the document,
// regardless of the TTL. Tests use this to observe updated rules within a
// single run (spec.md §9).
func (p *ShellPolicy) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forceLoad = true
}

func (p *ShellPolicy) ensureLoaded() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.forceLoad && time.Since(p.loadedAt) < CacheTTL && p.loadedAt.Unix() != 0 {
		return
	}
	p.forceLoad = false
	p.loadedAt = time.Now()

	if p.path == "" {
		p.rules = nil
		return
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		// Configuration error: the affected feature is disabled with a
		// single warning log; other features proceed (spec.md §7).
		if !os.IsNotExist(err) {
			p.logger.Warn("failed to read trusted commands document", "path", p.path, "error", err)
		}
		p.rules = nil
		return
	}

	var doc TrustedCommandsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		p.logger.Warn("failed to parse trusted commands document", "path", p.path, "error", err)
		p.rules = nil
		return
	}

	rules := make([]compiledRule, 0, len(doc.TrustedCommands))
	for _, rule := range doc.TrustedCommands {
		switch rule.Type {
		case TrustedCommandGlob:
			re, err := globToRegexp(rule.Command)
			if err != nil {
				p.logger.Warn("invalid glob in trusted commands", "pattern", rule.Command, "error", err)
				continue
			}
			rules = append(rules, compiledRule{glob: re})
		case TrustedCommandRegex:
			re, err := regexp.Compile(rule.Command)
			if err != nil {
				p.logger.Warn("invalid regex in trusted commands", "pattern", rule.Command, "error", err)
				continue
			}
			rules = append(rules, compiledRule{regex: re})
		}
	}
	p.rules = rules
}

// globToRegexp compiles a shell-style glob (only `*` and `?` wildcards)
// into an anchored regexp.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

// matchesUserRule reports whether command matches a configured
// trusted-command rule.
func (p *ShellPolicy) matchesUserRule(command string) bool {
	p.ensureLoaded()
	p.mu.Lock()
	rules := p.rules
	p.mu.Unlock()

	for _, r := range rules {
		if r.glob != nil && r.glob.MatchString(command) {
			return true
		}
		if r.regex != nil && r.regex.MatchString(command) {
			return true
		}
	}
	return false
}

// IsTrusted evaluates the three-part shell trust rule from spec.md §4.3.
// A dangerous pattern anywhere in the raw argv always forces approval,
// even for an otherwise-trusted read-only pipeline or user rule.
func (p *ShellPolicy) IsTrusted(command string) bool {
	argv := Tokenize(command)
	if len(argv) == 0 {
		return false
	}
	if ContainsDangerousPattern(argv) {
		return false
	}
	if IsReadOnlyPipeline(argv) {
		return true
	}
	return p.matchesUserRule(command)
}

// TrustLevelFor classifies a shell command into a TrustLevel for the tool
// registry.
func (p *ShellPolicy) TrustLevelFor(command string) models.TrustLevel {
	argv := Tokenize(command)
	if ContainsDangerousPattern(argv) {
		return models.TrustUntrusted
	}
	if IsReadOnlyPipeline(argv) {
		return models.TrustReadOnly
	}
	if p.matchesUserRule(command) {
		return models.TrustTrusted
	}
	return models.TrustUntrusted
}
