package trees

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree(t *testing.T) *FolderEntry {
	t.Helper()
	locale, err := NewFolderEntry("Application/locale", nil, []FileEntry{
		{Path: "Application/locale/de.json", Checksum: "AA", Size: 3},
	})
	require.NoError(t, err)
	app, err := NewFolderEntry("Application", []*FolderEntry{locale}, []FileEntry{
		{Path: "Application/SafeExamBrowser.exe", Checksum: "BB", Size: 10, Signature: Optional("CAFE"), Version: Optional("3.4.0.1")},
		{Path: "Application/empty.txt", Checksum: "CC", Size: 0, OriginalName: Optional("")},
	})
	require.NoError(t, err)
	root, err := NewFolderEntry("", []*FolderEntry{app}, []FileEntry{
		{Path: "readme.txt", Checksum: "DD", Size: 1},
	})
	require.NoError(t, err)
	return root
}

func TestNewFolderEntry(t *testing.T) {
	t.Run("rejects duplicate files under case folding", func(t *testing.T) {
		_, err := NewFolderEntry("", nil, []FileEntry{
			{Path: "Readme.TXT", Checksum: "A"},
			{Path: "readme.txt", Checksum: "B"},
		})
		assert.ErrorIs(t, err, ErrDuplicateEntry)
	})

	t.Run("rejects duplicate folders under case folding", func(t *testing.T) {
		a := MustFolderEntry("App", nil, nil)
		b := MustFolderEntry("APP", nil, nil)
		_, err := NewFolderEntry("", []*FolderEntry{a, b}, nil)
		assert.ErrorIs(t, err, ErrDuplicateEntry)
	})

	t.Run("allows a folder and a file with the same name", func(t *testing.T) {
		folder := MustFolderEntry("data", nil, nil)
		_, err := NewFolderEntry("", []*FolderEntry{folder}, []FileEntry{{Path: "data", Checksum: "A"}})
		assert.NoError(t, err)
	})

	t.Run("rejects negative size", func(t *testing.T) {
		_, err := NewFolderEntry("", nil, []FileEntry{{Path: "a", Size: -1}})
		assert.ErrorIs(t, err, ErrInvalidEntry)
	})

	t.Run("children are copies", func(t *testing.T) {
		files := []FileEntry{{Path: "a", Checksum: "A"}}
		folder := MustFolderEntry("", nil, files)
		files[0].Checksum = "MUTATED"
		assert.Equal(t, "A", folder.Files()[0].Checksum)

		got := folder.Files()
		got[0].Checksum = "MUTATED"
		assert.Equal(t, "A", folder.Files()[0].Checksum)
	})
}

func TestFolderEntryWalkAndCount(t *testing.T) {
	root := sampleTree(t)

	var visited []string
	root.Walk(func(folder *FolderEntry, file *FileEntry) bool {
		if folder != nil {
			visited = append(visited, "D:"+folder.Path())
		} else {
			visited = append(visited, "F:"+file.Path)
		}
		return true
	})

	assert.Equal(t, []string{
		"D:",
		"D:Application",
		"D:Application/locale",
		"F:Application/locale/de.json",
		"F:Application/SafeExamBrowser.exe",
		"F:Application/empty.txt",
		"F:readme.txt",
	}, visited)

	folders, files := root.Count()
	assert.Equal(t, 3, folders)
	assert.Equal(t, 4, files)
}

func TestFolderEntryJSON(t *testing.T) {
	root := sampleTree(t)

	data, err := json.Marshal(root)
	require.NoError(t, err)

	var decoded FolderEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, Equal(root, &decoded))

	t.Run("absent and empty optionals are distinct", func(t *testing.T) {
		app := decoded.Folders()[0]
		empty := app.Files()[1]
		require.NotNil(t, empty.OriginalName)
		assert.Equal(t, "", *empty.OriginalName)
		assert.Nil(t, empty.Signature)
		assert.Nil(t, empty.Version)
	})

	t.Run("duplicate children are rejected on decode", func(t *testing.T) {
		raw := `{"path":"","folders":[],"files":[{"path":"a","checksum":"1","size":1},{"path":"A","checksum":"2","size":1}]}`
		var f FolderEntry
		assert.ErrorIs(t, json.Unmarshal([]byte(raw), &f), ErrDuplicateEntry)
	})
}

func TestPathKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Application/SafeExamBrowser.exe", "application/safeexambrowser.exe"},
		{`Application\Locale\DE.json`, "application/locale/de.json"},
		{"/leading/", "leading"},
		{"./a/./b", "a/b"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PathKey(tt.in), tt.in)
	}
	assert.True(t, SamePath("Straße/A.TXT", "straße/a.txt"))
}

func TestEqual(t *testing.T) {
	a := sampleTree(t)
	b := sampleTree(t)
	assert.True(t, Equal(a, b))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))

	changed := MustFolderEntry("", a.Folders(), []FileEntry{{Path: "readme.txt", Checksum: "DD", Size: 2}})
	assert.False(t, Equal(a, changed))

	assert.False(t, EqualFiles(FileEntry{Path: "a"}, FileEntry{Path: "a", Version: Optional("")}))
}

func TestMatches(t *testing.T) {
	a := sampleTree(t)

	locale := MustFolderEntry("APPLICATION/Locale", nil, []FileEntry{
		{Path: "application/locale/DE.JSON", Checksum: "aa", Size: 3},
	})
	app := MustFolderEntry("application", []*FolderEntry{locale}, []FileEntry{
		{Path: "Application/EMPTY.txt", Checksum: "cc", Size: 0, OriginalName: Optional("")},
		{Path: "application/safeexambrowser.exe", Checksum: "bb", Size: 10, Signature: Optional("cafe"), Version: Optional("3.4.0.1")},
	})
	reordered := MustFolderEntry("", []*FolderEntry{app}, []FileEntry{{Path: "README.TXT", Checksum: "dd", Size: 1}})

	assert.False(t, Equal(a, reordered), "Equal is order and case sensitive")
	assert.True(t, Matches(a, reordered))
	assert.True(t, Matches(reordered, a))
	assert.True(t, Matches(nil, nil))
	assert.False(t, Matches(a, nil))

	resized := MustFolderEntry("", a.Folders(), []FileEntry{{Path: "readme.txt", Checksum: "DD", Size: 2}})
	assert.False(t, Matches(a, resized))

	extra := MustFolderEntry("", a.Folders(), append(a.Files(), FileEntry{Path: "new.dll", Checksum: "EE", Size: 1}))
	assert.False(t, Matches(a, extra))

	assert.False(t, MatchesFile(FileEntry{Path: "a"}, FileEntry{Path: "A", OriginalName: Optional("")}), "absent differs from empty")
	assert.True(t, MatchesFile(FileEntry{Path: "a", Version: Optional("V1")}, FileEntry{Path: "A", Version: Optional("v1")}))
}
