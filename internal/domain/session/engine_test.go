package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksavkin/SwiftLabel/internal/infrastructure/logging"
	"github.com/ksavkin/SwiftLabel/internal/providers/filesystem"
)

func writeFixtures(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
}

func newTestEngine(t *testing.T, classes []string, files []string) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	writeFixtures(t, root, files)

	eng, err := New(root, classes, filesystem.New(root), logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, eng.Initialize(context.Background()))
	return eng, root
}

var defaultFixtures = []string{
	"cat/c1.jpg",
	"cat/c2.jpg",
	"dog/d1.jpg",
	"unsorted/u1.jpg",
	"unsorted/u2.jpg",
	"root1.jpg",
	"root2.png",
}

func TestNewRejectsBadClassLists(t *testing.T) {
	fs := filesystem.New(t.TempDir())

	_, err := New(t.TempDir(), nil, fs, logging.NewNop())
	assert.Error(t, err)

	_, err = New(t.TempDir(), make([]string, MaxClasses+1), fs, logging.NewNop())
	assert.Error(t, err)
}

func TestInitializeAutoLabelsFromFolders(t *testing.T) {
	fixtures := append([]string{"nested/Cat/deep.jpg"}, defaultFixtures...)
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, fixtures)

	state := eng.GetState()
	require.Len(t, state.Images, len(fixtures))

	byID := map[string]*int{}
	for _, rec := range state.Images {
		byID[rec.ID] = rec.Label
	}

	require.NotNil(t, byID["cat/c1.jpg"])
	assert.Equal(t, 0, *byID["cat/c1.jpg"])
	require.NotNil(t, byID["dog/d1.jpg"])
	assert.Equal(t, 1, *byID["dog/d1.jpg"])
	assert.Nil(t, byID["unsorted/u1.jpg"])
	assert.Nil(t, byID["root1.jpg"])

	// Folder match is case-insensitive on the deepest segment.
	require.NotNil(t, byID["nested/Cat/deep.jpg"])
	assert.Equal(t, 0, *byID["nested/Cat/deep.jpg"])
}

func TestLabelImage(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	res, err := eng.LabelImage("unsorted/u1.jpg", 1)
	require.NoError(t, err)
	assert.Equal(t, "unsorted/u1.jpg", res.ImageID)
	assert.Equal(t, 1, res.ClassIndex)
	assert.Equal(t, "dog", res.ClassName)

	rec, ok := eng.GetImageByID("unsorted/u1.jpg")
	require.True(t, ok)
	require.NotNil(t, rec.Label)
	assert.Equal(t, 1, *rec.Label)
	require.NotNil(t, rec.ClassName)
	assert.Equal(t, "dog", *rec.ClassName)
}

func TestLabelImageSupersedesDeletion(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	require.NoError(t, eng.DeleteImage("unsorted/u1.jpg"))

	_, err := eng.LabelImage("unsorted/u1.jpg", 0)
	require.NoError(t, err)

	rec, ok := eng.GetImageByID("unsorted/u1.jpg")
	require.True(t, ok)
	assert.False(t, rec.MarkedForDeletion)
	require.NotNil(t, rec.Label)
	assert.Equal(t, 0, *rec.Label)
}

func TestLabelImageErrors(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)
	before := eng.GetState()

	_, err := eng.LabelImage("unsorted/u1.jpg", 2)
	assert.Equal(t, CodeInvalidClass, CodeOf(err))

	_, err = eng.LabelImage("unsorted/u1.jpg", -1)
	assert.Equal(t, CodeInvalidClass, CodeOf(err))

	_, err = eng.LabelImage("../escape.jpg", 0)
	assert.Equal(t, CodeInvalidPath, CodeOf(err))

	_, err = eng.LabelImage("missing.jpg", 0)
	assert.Equal(t, CodeNotFound, CodeOf(err))

	// Failed commands leave state untouched.
	after := eng.GetState()
	assert.Equal(t, before.Images, after.Images)
	assert.Equal(t, before.UndoStack, after.UndoStack)
}

func TestDeleteImage(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	require.NoError(t, eng.DeleteImage("cat/c1.jpg"))

	rec, ok := eng.GetImageByID("cat/c1.jpg")
	require.True(t, ok)
	assert.True(t, rec.MarkedForDeletion)
	assert.Nil(t, rec.Label)

	err := eng.DeleteImage("cat/c1.jpg")
	assert.Equal(t, CodeAlreadyDeleted, CodeOf(err))

	err = eng.DeleteImage("missing.jpg")
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestUndoRestoresPreviousLabel(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.LabelImage("unsorted/u1.jpg", 0)
	require.NoError(t, err)
	_, err = eng.LabelImage("unsorted/u1.jpg", 1)
	require.NoError(t, err)

	res, err := eng.Undo()
	require.NoError(t, err)
	assert.Equal(t, "unsorted/u1.jpg", res.ImageID)

	rec, _ := eng.GetImageByID("unsorted/u1.jpg")
	require.NotNil(t, rec.Label)
	assert.Equal(t, 0, *rec.Label)
	require.NotNil(t, rec.ClassName)
	assert.Equal(t, "cat", *rec.ClassName)
}

func TestUndoRemovesFirstLabel(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.LabelImage("unsorted/u1.jpg", 0)
	require.NoError(t, err)

	_, err = eng.Undo()
	require.NoError(t, err)

	rec, _ := eng.GetImageByID("unsorted/u1.jpg")
	assert.Nil(t, rec.Label)

	// Auto-labels live on the catalog record, not in the session label
	// map, so undoing a relabel of an auto-labeled image clears it.
	_, err = eng.LabelImage("cat/c1.jpg", 1)
	require.NoError(t, err)
	_, err = eng.Undo()
	require.NoError(t, err)

	rec, _ = eng.GetImageByID("cat/c1.jpg")
	assert.Nil(t, rec.Label)
}

func TestUndoDeletionRestoresLabel(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.LabelImage("unsorted/u1.jpg", 1)
	require.NoError(t, err)
	require.NoError(t, eng.DeleteImage("unsorted/u1.jpg"))

	_, err = eng.Undo()
	require.NoError(t, err)

	rec, _ := eng.GetImageByID("unsorted/u1.jpg")
	assert.False(t, rec.MarkedForDeletion)
	require.NotNil(t, rec.Label)
	assert.Equal(t, 1, *rec.Label)
}

func TestUndoEmptyStack(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.Undo()
	assert.Equal(t, CodeEmptyStack, CodeOf(err))
}

func TestNavigate(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)
	last := len(defaultFixtures) - 1

	assert.Equal(t, 1, eng.Navigate("next", nil))
	assert.Equal(t, 0, eng.Navigate("previous", nil))
	assert.Equal(t, 0, eng.Navigate("previous", nil))
	assert.Equal(t, last, eng.Navigate("last", nil))
	assert.Equal(t, last, eng.Navigate("next", nil))
	assert.Equal(t, 0, eng.Navigate("first", nil))

	idx := 3
	assert.Equal(t, 3, eng.Navigate("index", &idx))
	idx = 999
	assert.Equal(t, last, eng.Navigate("index", &idx))
	idx = -5
	assert.Equal(t, 0, eng.Navigate("index", &idx))
}

func TestNavigateEmptyCatalog(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat"}, nil)

	assert.Equal(t, 0, eng.Navigate("next", nil))
	assert.Equal(t, 0, eng.Navigate("last", nil))
	assert.Nil(t, eng.GetCurrentImage())
}

func TestGetStats(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	// Auto-labels: cat/c1, cat/c2 -> cat; dog/d1 -> dog.
	require.NoError(t, eng.DeleteImage("cat/c2.jpg"))
	_, err := eng.LabelImage("unsorted/u1.jpg", 1)
	require.NoError(t, err)

	stats := eng.GetStats()
	assert.Equal(t, 7, stats.TotalImages)
	assert.Equal(t, 3, stats.LabeledCount)
	assert.Equal(t, 3, stats.UnlabeledCount)
	assert.Equal(t, 1, stats.DeletedCount)
	assert.Equal(t, 1, stats.PerClass["cat"])
	assert.Equal(t, 2, stats.PerClass["dog"])
	assert.InDelta(t, 57.1, stats.ProgressPercent, 0.01)
}

func TestPreviewDiffsAgainstBaseline(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	// Auto-labels match their folders, so a fresh session has no changes.
	preview := eng.GetPreview()
	assert.Equal(t, 0, preview.TotalChanges)

	_, err := eng.LabelImage("cat/c1.jpg", 1)
	require.NoError(t, err)
	_, err = eng.LabelImage("unsorted/u1.jpg", 0)
	require.NoError(t, err)
	_, err = eng.LabelImage("root1.jpg", 1)
	require.NoError(t, err)
	require.NoError(t, eng.DeleteImage("cat/c2.jpg"))

	preview = eng.GetPreview()
	assert.Equal(t, 4, preview.TotalChanges)

	moves := map[string]string{}
	for _, mv := range preview.Moves {
		moves[mv.Source] = mv.Destination
	}
	// Relabel replaces the deepest class-matching segment.
	assert.Equal(t, "dog/c1.jpg", moves["cat/c1.jpg"])
	assert.Equal(t, "unsorted/cat/u1.jpg", moves["unsorted/u1.jpg"])
	// No matching segment appends the class folder.
	assert.Equal(t, "dog/root1.jpg", moves["root1.jpg"])

	require.Len(t, preview.Deletes, 1)
	assert.Equal(t, "cat/c2.jpg", preview.Deletes[0].Source)

	// Preview has no side effects.
	again := eng.GetPreview()
	assert.Equal(t, preview, again)
}

func TestPreviewSkipsNoOpMoves(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	// Relabeling an image to the class its folder already matches stages
	// nothing.
	_, err := eng.LabelImage("cat/c1.jpg", 1)
	require.NoError(t, err)
	_, err = eng.LabelImage("cat/c1.jpg", 0)
	require.NoError(t, err)

	preview := eng.GetPreview()
	assert.Equal(t, 0, preview.TotalChanges)
}

func TestCommitAppliesChanges(t *testing.T) {
	eng, root := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.LabelImage("cat/c1.jpg", 1)
	require.NoError(t, err)
	_, err = eng.LabelImage("root1.jpg", 0)
	require.NoError(t, err)
	require.NoError(t, eng.DeleteImage("dog/d1.jpg"))

	res, err := eng.Commit(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.MovesCompleted)
	assert.Equal(t, 1, res.DeletesCompleted)
	assert.Empty(t, res.Errors)

	assert.FileExists(t, filepath.Join(root, "dog", "c1.jpg"))
	assert.FileExists(t, filepath.Join(root, "cat", "root1.jpg"))
	assert.NoFileExists(t, filepath.Join(root, "cat", "c1.jpg"))
	assert.NoFileExists(t, filepath.Join(root, "dog", "d1.jpg"))

	// State is cleared and the catalog rebuilt from disk.
	assert.Equal(t, 0, eng.GetPreview().TotalChanges)
	assert.Equal(t, 6, eng.GetStats().TotalImages)

	_, err = eng.Undo()
	assert.Equal(t, CodeEmptyStack, CodeOf(err))
}

func TestCommitCollectsPerItemErrors(t *testing.T) {
	eng, root := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.LabelImage("unsorted/u1.jpg", 0)
	require.NoError(t, err)
	require.NoError(t, eng.DeleteImage("unsorted/u2.jpg"))

	// Remove the files out from under the staged changes.
	require.NoError(t, os.Remove(filepath.Join(root, "unsorted", "u1.jpg")))
	require.NoError(t, os.Remove(filepath.Join(root, "unsorted", "u2.jpg")))

	res, err := eng.Commit(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.MovesCompleted)
	assert.Len(t, res.Errors, 2)

	// State clears even on partial failure; disk is authoritative.
	assert.Equal(t, 0, eng.GetPreview().TotalChanges)
	assert.Equal(t, 5, eng.GetStats().TotalImages)
}

func TestPreviewNormalizesFolderCase(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat"}, []string{"Cat/x.jpg"})

	// The auto-label matched a folder whose casing differs from the
	// configured class, so committing would normalize it.
	preview := eng.GetPreview()
	require.Len(t, preview.Moves, 1)
	assert.Equal(t, "Cat/x.jpg", preview.Moves[0].Source)
	assert.Equal(t, "cat/x.jpg", preview.Moves[0].Destination)
}

func TestPersistenceRoundTrip(t *testing.T) {
	eng, root := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.LabelImage("unsorted/u1.jpg", 1)
	require.NoError(t, err)
	require.NoError(t, eng.DeleteImage("root1.jpg"))
	eng.Navigate("last", nil)

	restored, err := New(root, []string{"cat", "dog"}, filesystem.New(root), logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, restored.Initialize(context.Background()))

	rec, ok := restored.GetImageByID("unsorted/u1.jpg")
	require.True(t, ok)
	require.NotNil(t, rec.Label)
	assert.Equal(t, 1, *rec.Label)

	rec, _ = restored.GetImageByID("root1.jpg")
	assert.True(t, rec.MarkedForDeletion)

	assert.Equal(t, len(defaultFixtures)-1, restored.CurrentIndex())

	info := restored.GetInfo()
	assert.True(t, info.HasPendingChanges)
	assert.Equal(t, 1, info.LabelsCount)
	assert.Equal(t, 1, info.DeletionsCount)

	// Restored explicit labels are baseline, not pending moves; the
	// deletion was persisted before the baseline snapshot too.
	assert.Equal(t, 0, restored.GetPreview().TotalChanges)

	// Undo history survives the restart.
	_, err = restored.Undo()
	require.NoError(t, err)
	_, err = restored.Undo()
	require.NoError(t, err)
	_, err = restored.Undo()
	assert.Equal(t, CodeEmptyStack, CodeOf(err))
}

func TestClearResetsSession(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.LabelImage("unsorted/u1.jpg", 0)
	require.NoError(t, err)
	require.NoError(t, eng.DeleteImage("root1.jpg"))

	require.NoError(t, eng.Clear(context.Background()))

	rec, _ := eng.GetImageByID("unsorted/u1.jpg")
	assert.Nil(t, rec.Label)
	rec, _ = eng.GetImageByID("root1.jpg")
	assert.False(t, rec.MarkedForDeletion)

	_, err = eng.Undo()
	assert.Equal(t, CodeEmptyStack, CodeOf(err))
}

func TestGetChangeDiff(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.LabelImage("unsorted/u1.jpg", 0)
	require.NoError(t, err)
	require.NoError(t, eng.DeleteImage("root1.jpg"))

	diff := eng.GetChangeDiff()
	assert.Equal(t, 2, diff.TotalChanges)

	byID := map[string]ChangeDiffItem{}
	for _, c := range diff.Changes {
		byID[c.ImageID] = c
	}
	assert.Equal(t, "new_label", byID["unsorted/u1.jpg"].ChangeType)
	assert.Equal(t, "deletion", byID["root1.jpg"].ChangeType)
}

func TestListenersNotifiedAfterCommands(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	calls := 0
	eng.AddListener(func() { calls++ })
	eng.AddListener(func() { panic("listener bug") })

	_, err := eng.LabelImage("unsorted/u1.jpg", 0)
	require.NoError(t, err)
	require.NoError(t, eng.DeleteImage("root1.jpg"))
	_, err = eng.Undo()
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
}

func TestHistoryLogAppends(t *testing.T) {
	eng, root := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	_, err := eng.LabelImage("unsorted/u1.jpg", 0)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, ".swiftlabel", "history.jsonl"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], `"action":"session_start"`)
	assert.Contains(t, lines[len(lines)-1], `"action":"label"`)
}

func TestStateIsDetachedFromLaterCommands(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	state := eng.GetState()
	rec, ok := eng.GetImageByID("unsorted/u1.jpg")
	require.True(t, ok)
	assert.Nil(t, rec.Label)

	_, err := eng.LabelImage("unsorted/u1.jpg", 1)
	require.NoError(t, err)
	require.NoError(t, eng.DeleteImage("root1.jpg"))

	// Both reads captured state before the commands ran.
	assert.Nil(t, rec.Label)
	for _, img := range state.Images {
		switch img.ID {
		case "unsorted/u1.jpg":
			assert.Nil(t, img.Label)
		case "root1.jpg":
			assert.False(t, img.MarkedForDeletion)
		}
	}
}

func TestConcurrentReadersDuringCommands(t *testing.T) {
	eng, _ := newTestEngine(t, []string{"cat", "dog"}, defaultFixtures)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_, err := eng.LabelImage("unsorted/u1.jpg", i%2)
			assert.NoError(t, err)
		}
	}()

	// Readers dereference label pointers while the writer loops; run with
	// -race to verify the reads are against detached copies.
	for i := 0; i < 50; i++ {
		for _, img := range eng.GetState().Images {
			if img.Label != nil {
				_ = *img.Label
			}
		}
		if rec, ok := eng.GetImageByID("unsorted/u1.jpg"); ok && rec.Label != nil {
			_ = *rec.Label
		}
		if cur := eng.GetCurrentImage(); cur != nil && cur.ClassName != nil {
			_ = *cur.ClassName
		}
	}
	<-done
}
