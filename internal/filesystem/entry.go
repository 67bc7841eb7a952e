package filesystem

const (
	DirMarker  = "📁 "
	FileMarker = "📝 "
)

// DirEntry is one immediate child of a listed directory
type DirEntry struct {
	Name  string
	IsDir bool
}

// String renders the entry as its type marker followed by its base name
func (de DirEntry) String() string {
	if de.IsDir {
		return DirMarker + de.Name
	}
	return FileMarker + de.Name
}
