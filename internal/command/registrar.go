package command

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/gdbrns/go-whatsapp-multibot/internal/metrics"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

// FailureNotice is sent back to the chat when a command handler fails.
const FailureNotice = "❌ An error occurred while executing this command."

var commandName = regexp.MustCompile(`^(\w+)`)

// Spec describes one command. Pattern is matched right after the prefix.
type Spec struct {
	Pattern     string
	Description string
	Category    string
	AdminOnly   bool
	Hidden      bool
}

// HandlerFunc handles a matched command. match is the first capture group of
// the pattern, or "" when the pattern has none or it did not participate.
type HandlerFunc func(ctx context.Context, ev *Event, match string, cc *Context) error

// Command is a registered command as exposed to handlers.
type Command struct {
	Name        string
	Pattern     string
	Description string
	Category    string
	AdminOnly   bool
	Hidden      bool
	Owner       string

	re      *regexp.Regexp
	handler HandlerFunc
}

// Context is shared with every handler invocation.
type Context struct {
	Commands    []Command
	Prefix      string
	Version     string
	PluginCount int
}

type Options struct {
	Prefix  string
	Version string
	// IsAdmin decides who may run AdminOnly commands. Nil allows only self-sent messages.
	IsAdmin func(ev *Event) bool
	Metrics *metrics.Metrics
}

// Registrar turns command specs into registry entries.
type Registrar struct {
	registry *Registry
	prefix   string
	version  string
	isAdmin  func(ev *Event) bool
	metrics  *metrics.Metrics

	mu          sync.RWMutex
	commands    []*Command
	pluginCount atomic.Int64
}

func NewRegistrar(registry *Registry, opts Options) *Registrar {
	isAdmin := opts.IsAdmin
	if isAdmin == nil {
		isAdmin = func(ev *Event) bool { return ev.IsFromSelf }
	}
	return &Registrar{
		registry: registry,
		prefix:   opts.Prefix,
		version:  opts.Version,
		isAdmin:  isAdmin,
		metrics:  opts.Metrics,
	}
}

func (r *Registrar) Prefix() string {
	return r.prefix
}

func (r *Registrar) SetPluginCount(n int) {
	r.pluginCount.Store(int64(n))
}

// Define registers an unowned command.
func (r *Registrar) Define(spec Spec, h HandlerFunc) error {
	return r.define("", spec, h)
}

// Scope returns a view whose registrations are tagged with owner.
func (r *Registrar) Scope(owner string) *Scope {
	return &Scope{registrar: r, owner: owner}
}

// RemoveOwner drops every command and event handler registered by owner.
func (r *Registrar) RemoveOwner(owner string) int {
	r.mu.Lock()
	kept := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		if cmd.Owner != owner {
			kept = append(kept, cmd)
		}
	}
	removed := len(r.commands) - len(kept)
	r.commands = kept
	r.mu.Unlock()

	r.registry.Remove(owner)
	return removed
}

// Commands returns a snapshot of the registered commands in registration order.
func (r *Registrar) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		c := *cmd
		c.re, c.handler = nil, nil
		out = append(out, c)
	}
	return out
}

func (r *Registrar) define(owner string, spec Spec, h HandlerFunc) error {
	if strings.TrimSpace(spec.Pattern) == "" {
		return errors.New("command pattern is required")
	}
	if h == nil {
		return errors.Errorf("command %q has no handler", spec.Pattern)
	}

	re, err := regexp.Compile("(?i)^" + regexp.QuoteMeta(r.prefix) + spec.Pattern)
	if err != nil {
		return errors.Wrapf(err, "compile command pattern %q", spec.Pattern)
	}

	cmd := &Command{
		Name:        nameOf(spec.Pattern),
		Pattern:     spec.Pattern,
		Description: spec.Description,
		Category:    spec.Category,
		AdminOnly:   spec.AdminOnly,
		Hidden:      spec.Hidden,
		Owner:       owner,
		re:          re,
		handler:     h,
	}
	if cmd.Description == "" {
		cmd.Description = "No description"
	}
	if cmd.Category == "" {
		cmd.Category = "misc"
	}

	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	r.registry.Register(owner, r.eventHandler(cmd))
	return nil
}

func (r *Registrar) eventHandler(cmd *Command) EventHandler {
	return func(ctx context.Context, ev *Event) error {
		if ev.Text == "" {
			return nil
		}
		text := strings.TrimSpace(ev.Text)
		if !strings.HasPrefix(text, r.prefix) {
			return nil
		}
		match := cmd.re.FindStringSubmatch(text)
		if match == nil {
			return nil
		}

		entry := log.Command(cmd.Name, ev.Chat.String())
		if cmd.AdminOnly && !r.isAdmin(ev) {
			entry.WithField("sender", ev.Sender.String()).Debug("Ignoring admin command from non-admin")
			return nil
		}

		arg := ""
		if len(match) > 1 {
			arg = match[1]
		}

		started := time.Now()
		err := safeCall(func() error { return cmd.handler(ctx, ev, arg, r.context()) })
		r.metrics.CommandExecuted(cmd.Name, time.Since(started), err)
		if err == nil {
			return nil
		}

		entry.WithError(err).Error("Command failed")
		if replyErr := ev.Reply(ctx, FailureNotice); replyErr != nil {
			return errors.Wrapf(replyErr, "send failure notice for %s", cmd.Name)
		}
		return nil
	}
}

func (r *Registrar) context() *Context {
	return &Context{
		Commands:    r.Commands(),
		Prefix:      r.prefix,
		Version:     r.version,
		PluginCount: int(r.pluginCount.Load()),
	}
}

func nameOf(pattern string) string {
	if m := commandName.FindStringSubmatch(pattern); m != nil {
		return m[1]
	}
	return pattern
}

// Scope registers commands on behalf of one owner.
type Scope struct {
	registrar *Registrar
	owner     string
}

func (s *Scope) Define(spec Spec, h HandlerFunc) error {
	return s.registrar.define(s.owner, spec, h)
}

// Definer is what plugin units register against.
type Definer interface {
	Define(spec Spec, h HandlerFunc) error
}

var (
	_ Definer = (*Registrar)(nil)
	_ Definer = (*Scope)(nil)
)
