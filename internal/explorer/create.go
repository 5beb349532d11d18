package explorer

import (
	"context"
	"strings"

	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// NamePrompter asks the user for the name of a new entry.
type NamePrompter interface {
	// PromptName shows initial as the input's value and problem, when not
	// empty, as the reason the previous attempt was refused. ok is false
	// when the user gave up.
	PromptName(ctx context.Context, initial, problem string) (name string, ok bool)
}

// NamePrompterFunc adapts a function to NamePrompter.
type NamePrompterFunc func(ctx context.Context, initial, problem string) (string, bool)

// PromptName calls f.
func (f NamePrompterFunc) PromptName(ctx context.Context, initial, problem string) (string, bool) {
	return f(ctx, initial, problem)
}

// NewFile creates an empty file in the directory behind parent, asking
// prompter for its name until the device accepts one or the user gives up.
func (e *Explorer) NewFile(ctx context.Context, parent tree.Handle, prompter NamePrompter) error {
	return e.create(ctx, parent, prompter, false)
}

// NewDirectory is NewFile for directories.
func (e *Explorer) NewDirectory(ctx context.Context, parent tree.Handle, prompter NamePrompter) error {
	return e.create(ctx, parent, prompter, true)
}

// ValidateName trims name and checks it can name an entry. It returns the
// trimmed name, or the message to show when it cannot.
func (e *Explorer) ValidateName(name string) (string, string) {
	trimmed := strings.TrimSpace(name)

	switch {
	case trimmed == "":
		return "", e.messages.NameEmpty()
	case strings.Contains(trimmed, filesystem.Separator):
		return "", e.messages.NameSeparator(filesystem.Separator)
	default:
		return trimmed, ""
	}
}

func (e *Explorer) create(ctx context.Context, parent tree.Handle, prompter NamePrompter, dir bool) error {
	targets, ok := e.snapshot([]tree.Handle{parent})
	if !ok {
		return ErrClosed
	}

	if len(targets) == 0 {
		return errors.Validationf("parent directory no longer exists")
	}

	target := targets[0]
	if !target.entry.IsDir && !(target.entry.IsSymlink && target.linkToDir != tree.False) {
		return errors.Validationf("%s is not a directory", target.entry.Path)
	}

	initial, problem := "", ""

	for {
		name, ok := prompter.PromptName(ctx, initial, problem)
		if !ok {
			return errors.ErrUserCancelled
		}

		initial = name

		trimmed, invalid := e.ValidateName(name)
		if invalid != "" {
			problem = invalid
			continue
		}

		err := e.createRemote(ctx, target, trimmed, dir)
		if err == nil {
			break
		}

		if ctx.Err() != nil {
			return err
		}

		e.logger.Debug().Err(err).Str("parent", target.entry.Path).Str("name", trimmed).Msg("create failed")
		problem = err.Error()
	}

	e.Call(func() { e.tree.ResetLoaded(parent) })

	return e.load(ctx, parent, false)
}

func (e *Explorer) createRemote(ctx context.Context, parent item, name string, dir bool) error {
	ctx, cancel := context.WithTimeout(ctx, e.settings.AdminTimeout)
	defer cancel()

	reason := filesystem.OpCreateFile
	if dir {
		reason = filesystem.OpCreateDirectory
	}

	e.Post(func() { e.emitter.Emit(events.BusyStarted{Node: parent.handle, Reason: reason}) })
	defer e.Post(func() { e.emitter.Emit(events.BusyStopped{Node: parent.handle}) })

	if dir {
		return e.remote.CreateDirectory(ctx, parent.entry.Path, name)
	}

	return e.remote.CreateFile(ctx, parent.entry.Path, name)
}
