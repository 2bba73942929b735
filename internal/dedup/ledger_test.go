package dedup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkDoneAndSeenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.bin")
	l, err := Load(path, nil)
	require.NoError(t, err)

	require.False(t, l.Seen(CategoryVideo, "m1"))
	l.MarkDone(CategoryVideo, "m1")
	require.True(t, l.Seen(CategoryVideo, "m1"))
	require.False(t, l.Seen(CategoryImage, "m1"))

	require.NoError(t, l.Close())
}

func TestLedgerPersistsAcrossLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.bin")
	l, err := Load(path, nil)
	require.NoError(t, err)
	l.MarkDone(CategoryPost, "p1")
	require.NoError(t, l.Close())

	l2, err := Load(path, nil)
	require.NoError(t, err)
	require.True(t, l2.Seen(CategoryPost, "p1"))
	require.NoError(t, l2.Close())
}

func TestDisabledCategoryNeverReportsSeen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.bin")
	l, err := Load(path, Toggles{CategoryNotice: false})
	require.NoError(t, err)

	l.MarkDone(CategoryNotice, "n1")
	// Seen reads in-memory state, so no flush has to happen first
	require.False(t, l.Seen(CategoryNotice, "n1"))
	require.NoError(t, l.Close())
}

func TestCategoryFor(t *testing.T) {
	require.Equal(t, CategoryVideo, CategoryFor("VOD"))
	require.Equal(t, CategoryVideo, CategoryFor("LIVE"))
	require.Equal(t, CategoryImage, CategoryFor("PHOTO"))
	require.Equal(t, CategoryPost, CategoryFor("POST"))
	require.Equal(t, CategoryNotice, CategoryFor("NOTICE"))
}

func TestLoadNonexistentFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "ledger.bin")
	l, err := Load(path, nil)
	require.NoError(t, err)
	require.False(t, l.Seen(CategoryVideo, "anything"))
	require.NoError(t, l.Close())
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr)) // never flushed because nothing was marked done
}
