// Package contrib contributes the workspace file and folder commands and
// their menu entries
package contrib

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/commands"
	"github.com/xpomul/workspacefs/config"
	"github.com/xpomul/workspacefs/dialogs"
	"github.com/xpomul/workspacefs/internal/util"
	"github.com/xpomul/workspacefs/labels"
	"github.com/xpomul/workspacefs/naming"
	"github.com/xpomul/workspacefs/workspace"
)

// Command IDs
const (
	NewFileCommand      = "file.newFile"
	NewFolderCommand    = "file.newFolder"
	RenameCommand       = "file.rename"
	DeleteCommand       = "file.delete"
	DuplicateCommand    = "file.duplicate"
	AddFolderCommand    = "workspace.addFolder"
	RemoveFolderCommand = "workspace.removeFolder"
)

// Parameters that replace the corresponding dialog when present
const (
	NameParam   = "name"
	FolderParam = "folder"
)

var (
	ErrNoTarget    = errors.New("no target directory")
	ErrInvalidName = errors.New("invalid name")
)

// Deps are the services the commands delegate to
type Deps struct {
	FS        workspacefs.FileService
	Workspace *workspace.Service
	Validator *naming.Validator
	Labels    *labels.Provider
	Dialogs   dialogs.Dialogs
}

// WorkspaceCommands implements [commands.Contribution]
type WorkspaceCommands struct {
	Deps
	cfg *config.Config
}

func New(cfg *config.Config, deps Deps) *WorkspaceCommands {
	return &WorkspaceCommands{Deps: deps, cfg: cfg}
}

func (w *WorkspaceCommands) RegisterCommands(r *commands.Registry) error {
	const category = "File"
	regs := []struct {
		cmd commands.Command
		h   commands.Handler
	}{
		{
			commands.Command{ID: NewFileCommand, Label: "New File...", Category: category},
			commands.Handler{Execute: w.newFile},
		},
		{
			commands.Command{ID: NewFolderCommand, Label: "New Folder...", Category: category},
			commands.Handler{Execute: w.newFolder},
		},
		{
			commands.Command{ID: RenameCommand, Label: "Rename", Category: category},
			commands.Handler{Execute: w.rename, IsEnabled: w.isSingleNonRoot},
		},
		{
			commands.Command{ID: DeleteCommand, Label: "Delete", Category: category},
			commands.Handler{Execute: w.delete, IsEnabled: w.isNonRootSelection},
		},
		{
			commands.Command{ID: DuplicateCommand, Label: "Duplicate", Category: category},
			commands.Handler{Execute: w.duplicate, IsEnabled: w.isNonRootSelection},
		},
		{
			commands.Command{ID: AddFolderCommand, Label: "Add Folder to Workspace...", Category: "Workspace"},
			commands.Handler{Execute: w.addFolder},
		},
		{
			commands.Command{ID: RemoveFolderCommand, Label: "Remove Folder from Workspace", Category: "Workspace"},
			commands.Handler{Execute: w.removeFolder, IsEnabled: w.isRootSelection, IsVisible: w.isRootSelection},
		},
	}
	for _, reg := range regs {
		if err := r.Register(reg.cmd, reg.h); err != nil {
			return err
		}
	}
	return nil
}

func (w *WorkspaceCommands) RegisterMenus(m *commands.MenuRegistry) {
	newGroup := commands.NavigatorContextMenu.Group("1_new")
	m.RegisterMenuAction(newGroup, commands.MenuAction{CommandID: NewFileCommand, Label: "New File...", Order: "a"})
	m.RegisterMenuAction(newGroup, commands.MenuAction{CommandID: NewFolderCommand, Label: "New Folder...", Order: "b"})

	wsGroup := commands.NavigatorContextMenu.Group("2_workspace")
	m.RegisterMenuAction(wsGroup, commands.MenuAction{CommandID: AddFolderCommand, Order: "a"})
	m.RegisterMenuAction(wsGroup, commands.MenuAction{CommandID: RemoveFolderCommand, Order: "b"})

	modGroup := commands.NavigatorContextMenu.Group("4_modification")
	m.RegisterMenuAction(modGroup, commands.MenuAction{CommandID: RenameCommand, Order: "a"})
	m.RegisterMenuAction(modGroup, commands.MenuAction{CommandID: DeleteCommand, Order: "b"})
	m.RegisterMenuAction(modGroup, commands.MenuAction{CommandID: DuplicateCommand, Order: "c"})

	fileNew := commands.MainMenuFile.Group("1_new")
	m.RegisterMenuAction(fileNew, commands.MenuAction{CommandID: NewFileCommand, Label: "New File...", Order: "a"})
	m.RegisterMenuAction(fileNew, commands.MenuAction{CommandID: NewFolderCommand, Label: "New Folder...", Order: "b"})
}

func (w *WorkspaceCommands) isSingleNonRoot(args commands.Args) bool {
	return len(args.Selection) == 1 && !w.Workspace.IsRoot(args.Selection[0])
}

func (w *WorkspaceCommands) isNonRootSelection(args commands.Args) bool {
	return len(args.Selection) > 0 && !slices.ContainsFunc(args.Selection, w.Workspace.IsRoot)
}

func (w *WorkspaceCommands) isRootSelection(args commands.Args) bool {
	return len(args.Selection) > 0 && !slices.ContainsFunc(args.Selection, func(p string) bool {
		return !w.Workspace.IsRoot(p)
	})
}

// parentFor resolves the directory new entries go into: the first selected
// path, its parent for files, or the first root without a selection
func (w *WorkspaceCommands) parentFor(ctx context.Context, args commands.Args) (*workspacefs.FileStat, error) {
	var target string
	if len(args.Selection) > 0 {
		target = args.Selection[0]
	} else if roots := w.Workspace.Roots(); len(roots) > 0 {
		target = roots[0]
	} else {
		return nil, ErrNoTarget
	}

	stat, err := w.FS.Stat(ctx, target)
	if err != nil {
		return nil, err
	}
	if stat.IsDir {
		return stat, nil
	}
	return w.FS.Stat(ctx, workspacefs.Parent(stat.Path))
}

// askName returns the name from the NameParam or a prompt. ok is false when
// the prompt was cancelled
func (w *WorkspaceCommands) askName(ctx context.Context, args commands.Args, title, initial string,
	validate func(context.Context, string) string,
) (string, bool, error) {
	if name := args.Param(NameParam); name != "" {
		if msg := validate(ctx, name); msg != "" {
			return "", false, fmt.Errorf("%w: %s", ErrInvalidName, strings.ReplaceAll(msg, "**", ""))
		}
		return name, true, nil
	}
	return w.Dialogs.Prompt(ctx, dialogs.PromptOptions{Title: title, Initial: initial, Validate: validate})
}

func (w *WorkspaceCommands) newFile(ctx context.Context, args commands.Args) error {
	return w.newEntry(ctx, args, false)
}

func (w *WorkspaceCommands) newFolder(ctx context.Context, args commands.Args) error {
	return w.newEntry(ctx, args, true)
}

func (w *WorkspaceCommands) newEntry(ctx context.Context, args commands.Args, isDir bool) error {
	logger := util.GetLogger("WorkspaceCommands.newEntry")

	parent, err := w.parentFor(ctx, args)
	if err != nil {
		return err
	}

	title, initial := "New File", w.Validator.UniqueChildName(parent, w.cfg.DefaultFileName, w.cfg.DefaultFileExt)
	if isDir {
		title, initial = "New Folder", w.Validator.UniqueChildName(parent, w.cfg.DefaultFolderName, "")
	}
	validate := func(ctx context.Context, name string) string {
		return w.Validator.Validate(ctx, name, parent, true)
	}

	name, ok, err := w.askName(ctx, args, title, initial, validate)
	if err != nil || !ok {
		return err
	}

	target := workspacefs.Join(parent.Path, name)
	if isDir {
		err = w.FS.CreateFolder(ctx, target)
	} else {
		err = w.FS.CreateFile(ctx, target, nil)
	}
	if err != nil {
		return err
	}
	logger.Info().Str("path", target).Bool("dir", isDir).Msg("Created")
	return nil
}

func (w *WorkspaceCommands) rename(ctx context.Context, args commands.Args) error {
	logger := util.GetLogger("WorkspaceCommands.rename")

	src := workspacefs.Clean(args.Selection[0])
	parent, err := w.FS.Stat(ctx, workspacefs.Parent(src))
	if err != nil {
		return err
	}
	oldName := workspacefs.Base(src)
	if _, ok := parent.Child(oldName); !ok {
		return fmt.Errorf("rename %s: %w", src, workspacefs.ErrNotFound)
	}

	validate := func(ctx context.Context, name string) string {
		if name == oldName {
			return ""
		}
		if w.Validator.CaseInsensitive() && strings.EqualFold(name, oldName) {
			// the only folded match is the source itself
			return w.Validator.Validate(ctx, name, nil, false)
		}
		return w.Validator.Validate(ctx, name, parent, false)
	}
	name, ok, err := w.askName(ctx, args, "Rename", oldName, validate)
	if err != nil || !ok || name == oldName {
		return err
	}

	dst := workspacefs.Join(parent.Path, name)
	if err := w.FS.Move(ctx, src, dst); err != nil {
		return err
	}
	logger.Info().Str("from", src).Str("to", dst).Msg("Renamed")
	return nil
}

// dedupe cleans paths and drops repeats, keeping the first occurrence
func dedupe(paths []string) []string {
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		p = workspacefs.Clean(p)
		if !slices.Contains(cleaned, p) {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}

// collapse dedupes paths and drops those below another selected path
func collapse(paths []string) []string {
	cleaned := dedupe(paths)
	return slices.DeleteFunc(slices.Clone(cleaned), func(p string) bool {
		return slices.ContainsFunc(cleaned, func(a string) bool { return workspacefs.IsAncestor(a, p) })
	})
}

func (w *WorkspaceCommands) confirm(ctx context.Context, title, question string, paths []string) (bool, error) {
	if !w.cfg.ConfirmDelete {
		return true, nil
	}
	msg := question + "\n" + w.Labels.ConfirmList(paths, w.cfg.ConfirmListMax)
	return w.Dialogs.Confirm(ctx, title, msg)
}

func (w *WorkspaceCommands) delete(ctx context.Context, args commands.Args) error {
	logger := util.GetLogger("WorkspaceCommands.delete")

	targets := collapse(args.Selection)
	title, question := "Delete File", "Are you sure you want to permanently delete the following file?"
	if len(targets) > 1 {
		title = "Delete Files"
		question = fmt.Sprintf("Are you sure you want to permanently delete the following %d files?", len(targets))
	}
	ok, err := w.confirm(ctx, title, question, targets)
	if err != nil || !ok {
		return err
	}

	var errs []error
	for _, p := range targets {
		if err := w.FS.Delete(ctx, p, workspacefs.DeleteOptions{Recursive: true}); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info().Str("path", p).Msg("Deleted")
	}
	return errors.Join(errs...)
}

func (w *WorkspaceCommands) duplicate(ctx context.Context, args commands.Args) error {
	logger := util.GetLogger("WorkspaceCommands.duplicate")

	var errs []error
	for _, src := range collapse(args.Selection) {
		// restat per target; earlier copies may share the parent
		parent, err := w.FS.Stat(ctx, workspacefs.Parent(src))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entry, ok := parent.Child(workspacefs.Base(src))
		if !ok {
			errs = append(errs, fmt.Errorf("duplicate %s: %w", src, workspacefs.ErrNotFound))
			continue
		}
		dst := workspacefs.Join(parent.Path, w.Validator.CopyName(parent, entry.Name, entry.IsDir))
		if err := w.FS.Copy(ctx, src, dst); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info().Str("from", src).Str("to", dst).Msg("Duplicated")
	}
	return errors.Join(errs...)
}

func (w *WorkspaceCommands) saveWorkspace(ctx context.Context) error {
	if w.Workspace.WorkspaceFile() == "" {
		return nil
	}
	return w.Workspace.Save(ctx)
}

func (w *WorkspaceCommands) addFolder(ctx context.Context, args commands.Args) error {
	dir := args.Param(FolderParam)
	if dir == "" {
		picked, ok, err := w.Dialogs.PickFolder(ctx, "Add Folder to Workspace")
		if err != nil || !ok {
			return err
		}
		dir = picked
	}

	added, err := w.Workspace.AddRoots(ctx, dir)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return nil
	}
	return w.saveWorkspace(ctx)
}

func (w *WorkspaceCommands) removeFolder(ctx context.Context, args commands.Args) error {
	roots := dedupe(args.Selection)
	title, question := "Remove Folder from Workspace",
		"Are you sure you want to remove the following folder from the workspace? The folder is not deleted."
	if len(roots) > 1 {
		title = "Remove Folders from Workspace"
		question = fmt.Sprintf("Are you sure you want to remove the following %d folders from the workspace? The folders are not deleted.", len(roots))
	}
	ok, err := w.confirm(ctx, title, question, roots)
	if err != nil || !ok {
		return err
	}

	if removed := w.Workspace.RemoveRoots(roots...); len(removed) == 0 {
		return nil
	}
	return w.saveWorkspace(ctx)
}

var _ commands.Contribution = (*WorkspaceCommands)(nil)
