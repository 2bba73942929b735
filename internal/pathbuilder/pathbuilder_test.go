package pathbuilder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandElidesEmptyFields(t *testing.T) {
	tmpl := "{date} {community_name} {artis} {title}.{quality}.{video}.{audio}"
	meta := map[string]string{
		"date":           "260730",
		"community_name": "IVE",
		"artis":          "",
		"title":          "Hello World",
		"quality":        "1080p",
		"video":          "",
		"audio":          "aac",
	}
	got := Expand(tmpl, meta)
	require.Equal(t, "260730 IVE Hello World.1080p aac", got)
}

func TestExpandKeepsTitleEvenWhenEmpty(t *testing.T) {
	got := Expand("{date} {title}", map[string]string{"date": "260730", "title": ""})
	require.Equal(t, "260730", got)
}

func TestSanitizeStripsIllegalCharacters(t *testing.T) {
	got := Sanitize(`a<b>c:d"e/f\g|h?i*j`)
	require.Equal(t, "abcdefghij", got)
}

func TestSanitizeEmptyBecomesPlaceholder(t *testing.T) {
	require.Equal(t, "_empty_file", Sanitize(`<>:"/\|?*`))
}

func TestSanitizeReservedNameGetsPrefixed(t *testing.T) {
	require.Equal(t, "_con.mp4", Sanitize("con.mp4"))
	require.Equal(t, "_COM1", Sanitize("COM1"))
}

func TestSanitizeNFCNormalizes(t *testing.T) {
	decomposed := "é" // "e" + combining acute accent
	got := Sanitize(decomposed)
	require.Equal(t, "é", got) // precomposed "é"
}

func TestUniqueAppendsCounterOnCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video (1).mp4"), []byte("x"), 0o644))

	got := Unique(dir, "video.mp4")
	require.Equal(t, "video (2).mp4", got)
}

func TestUniqueReturnsUnchangedWhenFree(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, "fresh.mp4", Unique(dir, "fresh.mp4"))
}
