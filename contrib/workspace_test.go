package contrib

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/commands"
	"github.com/xpomul/workspacefs/config"
	"github.com/xpomul/workspacefs/dialogs"
	"github.com/xpomul/workspacefs/filesystem"
	"github.com/xpomul/workspacefs/internal/mocks"
	"github.com/xpomul/workspacefs/labels"
	"github.com/xpomul/workspacefs/naming"
	"github.com/xpomul/workspacefs/workspace"
)

type fixture struct {
	ctx  context.Context
	fs   *filesystem.FileSystem
	ws   *workspace.Service
	dlg  *mocks.MockDialogs
	reg  *commands.Registry
	menu *commands.MenuRegistry
	cfg  *config.Config
}

func newFixture(t *testing.T, files ...string) *fixture {
	t.Helper()
	return newFixtureWith(t, nil, files...)
}

func newFixtureWith(t *testing.T, opts []naming.Option, files ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	fs := filesystem.NewFS()
	require.NoError(t, fs.CreateFolder(ctx, "/ws"))
	for _, f := range files {
		require.NoError(t, fs.CreateFile(ctx, f, []byte(f)))
	}
	ws := workspace.NewService(fs)
	require.NoError(t, ws.OpenFolder(ctx, "/ws"))

	f := &fixture{
		ctx:  ctx,
		fs:   fs,
		ws:   ws,
		dlg:  &mocks.MockDialogs{},
		reg:  commands.NewRegistry(),
		menu: commands.NewMenuRegistry(),
		cfg:  config.NewDefaultConfig(),
	}
	c := New(f.cfg, Deps{
		FS:        fs,
		Workspace: ws,
		Validator: naming.NewValidator(fs, opts...),
		Labels:    labels.NewProvider(ws),
		Dialogs:   f.dlg,
	})
	require.NoError(t, commands.Contribute(f.reg, f.menu, c))
	return f
}

func (f *fixture) exec(id string, sel ...string) error {
	return f.reg.Execute(f.ctx, id, commands.Args{Selection: sel})
}

func (f *fixture) execWith(id string, params map[string]string, sel ...string) error {
	return f.reg.Execute(f.ctx, id, commands.Args{Selection: sel, Params: params})
}

func (f *fixture) exists(t *testing.T, p string) bool {
	t.Helper()
	ok, err := f.fs.Exists(f.ctx, p)
	require.NoError(t, err)
	return ok
}

// answer makes the prompt validate and return value
func answer(value string) func(context.Context, dialogs.PromptOptions) string {
	return func(ctx context.Context, opts dialogs.PromptOptions) string {
		if opts.Validate != nil && opts.Validate(ctx, value) != "" {
			return ""
		}
		return value
	}
}

func TestRegisterCommands(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ids := make([]string, 0)
	for _, c := range f.reg.Commands() {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{
		NewFileCommand, NewFolderCommand, RenameCommand, DeleteCommand,
		DuplicateCommand, AddFolderCommand, RemoveFolderCommand,
	}, ids)

	items := f.menu.Items(commands.NavigatorContextMenu.Group("4_modification"))
	require.Len(t, items, 3)
	assert.Equal(t, RenameCommand, items[0].CommandID)
	assert.Equal(t, DuplicateCommand, items[2].CommandID)
	assert.Len(t, f.menu.Items(commands.MainMenuFile.Group("1_new")), 2)
	assert.Len(t, f.menu.Items(commands.NavigatorContextMenu.Group("1_new")), 2)
	assert.Len(t, f.menu.Items(commands.NavigatorContextMenu.Group("2_workspace")), 2)
}

func TestNewFile(t *testing.T) {
	t.Parallel()

	t.Run("PromptsWithUniqueDefault", func(t *testing.T) {
		f := newFixture(t, "/ws/Untitled.txt")
		f.dlg.On("Prompt", mock.Anything, mock.MatchedBy(func(o dialogs.PromptOptions) bool {
			return o.Title == "New File" && o.Initial == "Untitled_1.txt"
		})).Return(answer("src/main.go"), true, nil)

		require.NoError(t, f.exec(NewFileCommand, "/ws"))
		assert.True(t, f.exists(t, "/ws/src/main.go"), "nested names create parents")
		f.dlg.AssertExpectations(t)
	})

	t.Run("FileSelectionUsesParent", func(t *testing.T) {
		f := newFixture(t, "/ws/dir/a.txt")
		require.NoError(t, f.execWith(NewFileCommand, map[string]string{NameParam: "b.txt"}, "/ws/dir/a.txt"))
		assert.True(t, f.exists(t, "/ws/dir/b.txt"))
	})

	t.Run("NoSelectionUsesFirstRoot", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.execWith(NewFileCommand, map[string]string{NameParam: "c.txt"}))
		assert.True(t, f.exists(t, "/ws/c.txt"))
	})

	t.Run("NoRoots", func(t *testing.T) {
		f := newFixture(t)
		f.ws.RemoveRoots("/ws")
		assert.ErrorIs(t, f.exec(NewFileCommand), ErrNoTarget)
	})

	t.Run("InvalidParam", func(t *testing.T) {
		f := newFixture(t, "/ws/taken.txt")
		err := f.execWith(NewFileCommand, map[string]string{NameParam: "taken.txt"}, "/ws")
		assert.ErrorIs(t, err, ErrInvalidName)
		assert.Contains(t, err.Error(), "A file or folder taken.txt already exists")
	})

	t.Run("Cancelled", func(t *testing.T) {
		f := newFixture(t)
		f.dlg.On("Prompt", mock.Anything, mock.Anything).Return("", false, nil)
		require.NoError(t, f.exec(NewFileCommand, "/ws"))

		stat, err := f.fs.Stat(f.ctx, "/ws")
		require.NoError(t, err)
		assert.Empty(t, stat.Children)
	})
}

func TestNewFolder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.fs.CreateFolder(f.ctx, "/ws/Untitled"))
	f.dlg.On("Prompt", mock.Anything, mock.MatchedBy(func(o dialogs.PromptOptions) bool {
		return o.Title == "New Folder" && o.Initial == "Untitled_1"
	})).Return(answer("a/b"), true, nil)

	require.NoError(t, f.exec(NewFolderCommand, "/ws"))
	stat, err := f.fs.Stat(f.ctx, "/ws/a/b")
	require.NoError(t, err)
	assert.True(t, stat.IsDir)
}

func TestRename(t *testing.T) {
	t.Parallel()

	t.Run("Renames", func(t *testing.T) {
		f := newFixture(t, "/ws/old.txt", "/ws/other.txt")
		var validate func(context.Context, string) string
		f.dlg.On("Prompt", mock.Anything, mock.MatchedBy(func(o dialogs.PromptOptions) bool {
			validate = o.Validate
			return o.Initial == "old.txt"
		})).Return("new.txt", true, nil)

		require.NoError(t, f.exec(RenameCommand, "/ws/old.txt"))
		assert.False(t, f.exists(t, "/ws/old.txt"))
		assert.True(t, f.exists(t, "/ws/new.txt"))

		require.NotNil(t, validate)
		assert.Empty(t, validate(f.ctx, "old.txt"), "keeping the name is accepted")
		assert.NotEmpty(t, validate(f.ctx, "other.txt"))
		assert.NotEmpty(t, validate(f.ctx, "a/b"), "rename does not allow nested paths")
	})

	t.Run("SameNameIsNoop", func(t *testing.T) {
		fs := &mocks.MockFileService{}
		ws := workspace.NewService(fs)
		fs.On("Stat", mock.Anything, "/ws").Return(&workspacefs.FileStat{
			Path: "/ws", Name: "ws", IsDir: true,
			Children: []*workspacefs.FileStat{{Path: "/ws/a.txt", Name: "a.txt"}},
		}, nil)
		reg := commands.NewRegistry()
		c := New(config.NewDefaultConfig(), Deps{FS: fs, Workspace: ws, Validator: naming.NewValidator(fs)})
		require.NoError(t, c.RegisterCommands(reg))

		err := reg.Execute(context.Background(), RenameCommand,
			commands.Args{Selection: []string{"/ws/a.txt"}, Params: map[string]string{NameParam: "a.txt"}})
		require.NoError(t, err)
		fs.AssertNotCalled(t, "Move", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CaseOnlyWhenFolding", func(t *testing.T) {
		f := newFixtureWith(t, []naming.Option{naming.WithCaseInsensitive(true)}, "/ws/a.txt", "/ws/b.txt")
		var validate func(context.Context, string) string
		f.dlg.On("Prompt", mock.Anything, mock.MatchedBy(func(o dialogs.PromptOptions) bool {
			validate = o.Validate
			return o.Initial == "a.txt"
		})).Return("A.txt", true, nil)

		require.NoError(t, f.exec(RenameCommand, "/ws/a.txt"))
		assert.False(t, f.exists(t, "/ws/a.txt"))
		assert.True(t, f.exists(t, "/ws/A.txt"))

		require.NotNil(t, validate)
		assert.Empty(t, validate(f.ctx, "A.TXT"))
		assert.NotEmpty(t, validate(f.ctx, "B.txt"), "other siblings still collide when folded")
		assert.NotEmpty(t, validate(f.ctx, " A.txt"))
	})

	t.Run("CaseOnlyParam", func(t *testing.T) {
		f := newFixtureWith(t, []naming.Option{naming.WithCaseInsensitive(true)}, "/ws/a.txt")
		require.NoError(t, f.execWith(RenameCommand, map[string]string{NameParam: "A.txt"}, "/ws/a.txt"))
		assert.True(t, f.exists(t, "/ws/A.txt"))
		assert.False(t, f.exists(t, "/ws/a.txt"))
	})

	t.Run("Enablement", func(t *testing.T) {
		f := newFixture(t, "/ws/a.txt", "/ws/b.txt")
		assert.False(t, f.reg.IsEnabled(RenameCommand, commands.Args{}))
		assert.False(t, f.reg.IsEnabled(RenameCommand, commands.Args{Selection: []string{"/ws"}}), "roots cannot be renamed")
		assert.False(t, f.reg.IsEnabled(RenameCommand, commands.Args{Selection: []string{"/ws/a.txt", "/ws/b.txt"}}))
		assert.True(t, f.reg.IsEnabled(RenameCommand, commands.Args{Selection: []string{"/ws/a.txt"}}))
		assert.ErrorIs(t, f.exec(RenameCommand, "/ws"), commands.ErrDisabled)
	})

	t.Run("Missing", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.exec(RenameCommand, "/ws/ghost.txt"), workspacefs.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("ConfirmsAndCollapsesNested", func(t *testing.T) {
		f := newFixture(t, "/ws/dir/inner.txt", "/ws/a.txt", "/ws/keep.txt")
		f.dlg.On("Confirm", mock.Anything, "Delete Files",
			"Are you sure you want to permanently delete the following 2 files?\n- ws/dir\n- ws/a.txt").
			Return(true, nil)

		require.NoError(t, f.exec(DeleteCommand, "/ws/dir", "/ws/dir/inner.txt", "/ws/a.txt", "/ws/a.txt"))
		assert.False(t, f.exists(t, "/ws/dir"))
		assert.False(t, f.exists(t, "/ws/a.txt"))
		assert.True(t, f.exists(t, "/ws/keep.txt"))
		f.dlg.AssertExpectations(t)
	})

	t.Run("Declined", func(t *testing.T) {
		f := newFixture(t, "/ws/a.txt")
		f.dlg.On("Confirm", mock.Anything, "Delete File", mock.Anything).Return(false, nil)
		require.NoError(t, f.exec(DeleteCommand, "/ws/a.txt"))
		assert.True(t, f.exists(t, "/ws/a.txt"))
	})

	t.Run("NoConfirmWhenDisabled", func(t *testing.T) {
		f := newFixture(t, "/ws/a.txt")
		f.cfg.ConfirmDelete = false
		require.NoError(t, f.exec(DeleteCommand, "/ws/a.txt"))
		assert.False(t, f.exists(t, "/ws/a.txt"))
		f.dlg.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("JoinsFailures", func(t *testing.T) {
		f := newFixture(t, "/ws/a.txt")
		f.cfg.ConfirmDelete = false
		err := f.exec(DeleteCommand, "/ws/ghost1", "/ws/a.txt", "/ws/ghost2")
		assert.ErrorIs(t, err, workspacefs.ErrNotFound)
		assert.Contains(t, err.Error(), "ghost1")
		assert.Contains(t, err.Error(), "ghost2")
		assert.False(t, f.exists(t, "/ws/a.txt"), "other targets are still deleted")
	})

	t.Run("RootsDisabled", func(t *testing.T) {
		f := newFixture(t, "/ws/a.txt")
		assert.ErrorIs(t, f.exec(DeleteCommand, "/ws/a.txt", "/ws"), commands.ErrDisabled)
		assert.ErrorIs(t, f.exec(DeleteCommand), commands.ErrDisabled)
	})

	t.Run("ConfirmError", func(t *testing.T) {
		f := newFixture(t, "/ws/a.txt")
		boom := errors.New("dialog closed")
		f.dlg.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(false, boom)
		assert.ErrorIs(t, f.exec(DeleteCommand, "/ws/a.txt"), boom)
		assert.True(t, f.exists(t, "/ws/a.txt"))
	})
}

func TestDuplicate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "/ws/notes.txt", "/ws/notes copy.txt", "/ws/v1.2/a.txt")

	require.NoError(t, f.exec(DuplicateCommand, "/ws/notes.txt", "/ws/v1.2"))
	assert.True(t, f.exists(t, "/ws/notes copy 2.txt"))
	assert.True(t, f.exists(t, "/ws/v1.2 copy/a.txt"))

	require.NoError(t, f.exec(DuplicateCommand, "/ws/notes.txt"))
	assert.True(t, f.exists(t, "/ws/notes copy 3.txt"))

	data, err := f.fs.ReadFile(f.ctx, "/ws/notes copy 3.txt")
	require.NoError(t, err)
	assert.Equal(t, "/ws/notes.txt", string(data))

	assert.ErrorIs(t, f.exec(DuplicateCommand, "/ws/ghost"), workspacefs.ErrNotFound)
	assert.ErrorIs(t, f.exec(DuplicateCommand, "/ws"), commands.ErrDisabled)
}

func TestAddFolder(t *testing.T) {
	t.Parallel()

	t.Run("PickedFolderSaved", func(t *testing.T) {
		f := newFixture(t, "/proj/ws.theia-workspace")
		require.NoError(t, f.fs.WriteFile(f.ctx, "/proj/ws.theia-workspace", []byte(`{"folders":[{"path":"/ws"}]}`)))
		require.NoError(t, f.fs.CreateFolder(f.ctx, "/proj/extra"))
		require.NoError(t, f.ws.Open(f.ctx, "/proj/ws.theia-workspace"))

		f.dlg.On("PickFolder", mock.Anything, "Add Folder to Workspace").Return("/proj/extra", true, nil)
		require.NoError(t, f.exec(AddFolderCommand))

		assert.Equal(t, []string{"/ws", "/proj/extra"}, f.ws.Roots())
		raw, err := f.fs.ReadFile(f.ctx, "/proj/ws.theia-workspace")
		require.NoError(t, err)
		assert.JSONEq(t, `{"folders":[{"path":"/ws"},{"path":"extra"}]}`, string(raw))
	})

	t.Run("FolderParam", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.fs.CreateFolder(f.ctx, "/srv"))
		require.NoError(t, f.execWith(AddFolderCommand, map[string]string{FolderParam: "/srv"}))
		assert.Equal(t, []string{"/ws", "/srv"}, f.ws.Roots())
	})

	t.Run("NotADirectory", func(t *testing.T) {
		f := newFixture(t, "/file.txt")
		f.dlg.On("PickFolder", mock.Anything, mock.Anything).Return("/file.txt", true, nil)
		assert.ErrorIs(t, f.exec(AddFolderCommand), workspacefs.ErrNotDir)
		assert.Equal(t, []string{"/ws"}, f.ws.Roots())
	})

	t.Run("Cancelled", func(t *testing.T) {
		f := newFixture(t)
		f.dlg.On("PickFolder", mock.Anything, mock.Anything).Return("", false, nil)
		require.NoError(t, f.exec(AddFolderCommand))
		assert.Equal(t, []string{"/ws"}, f.ws.Roots())
	})
}

func TestRemoveFolder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.fs.CreateFolder(f.ctx, "/ws/nested"))
	require.NoError(t, f.fs.CreateFolder(f.ctx, "/other"))
	_, err := f.ws.AddRoots(f.ctx, "/ws/nested", "/other")
	require.NoError(t, err)

	assert.False(t, f.reg.IsVisible(RemoveFolderCommand, commands.Args{Selection: []string{"/ws/file"}}))
	assert.ErrorIs(t, f.exec(RemoveFolderCommand, "/ws", "/ws/file"), commands.ErrDisabled)

	f.dlg.On("Confirm", mock.Anything, "Remove Folders from Workspace", mock.Anything).Return(true, nil).Once()
	require.NoError(t, f.exec(RemoveFolderCommand, "/ws", "/ws/nested"))
	assert.Equal(t, []string{"/other"}, f.ws.Roots(), "nested roots are removed individually")
	assert.True(t, f.exists(t, "/ws/nested"), "folders stay on disk")

	f.dlg.On("Confirm", mock.Anything, "Remove Folder from Workspace", mock.Anything).Return(false, nil).Once()
	require.NoError(t, f.exec(RemoveFolderCommand, "/other"))
	assert.Equal(t, []string{"/other"}, f.ws.Roots())
	f.dlg.AssertExpectations(t)
}

func TestCollapse(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"/a", "/b"}, collapse([]string{"/a/x", "/a", "/b/", "/a/x/y", "/b"}))
	assert.Equal(t, []string{"/a/x", "/a"}, dedupe([]string{"/a/x", "/a", "/a/x/"}))
}
