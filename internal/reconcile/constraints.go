package reconcile

// Constraint names one of the domain-fixed unique constraints the
// reconciler enforces on top of whatever a source's SQLite schema
// itself declares. This catalog is not user configuration: JW Library's
// schema is fixed, so the constraints it implies are fixed too.
type Constraint struct {
	Table  string
	Subset []string
}

// constraints lists every table/column-subset pair, in the order they
// must be applied (Note's ["Guid"] constraint first,
// so a verbatim re-export collision is caught before falling through
// to the looser title/content/block identity match).
var constraints = []Constraint{
	{Table: "Location", Subset: []string{
		"BookNumber", "ChapterNumber", "DocumentId", "Track",
		"IssueTagNumber", "KeySymbol", "MepsLanguage", "Type",
	}},
	{Table: "Bookmark", Subset: []string{"PublicationLocationId", "Slot"}},
	{Table: "InputField", Subset: []string{"LocationId", "TextTag"}},
	{Table: "Note", Subset: []string{"Guid"}},
	{Table: "Note", Subset: []string{"LocationId", "Title", "Content", "BlockType", "BlockIdentifier"}},
	{Table: "UserMark", Subset: []string{"UserMarkGuid"}},
	{Table: "BlockRange", Subset: []string{"BlockType", "Identifier", "StartToken", "EndToken", "UserMarkId"}},
	{Table: "TagMap", Subset: []string{"TagId", "NoteId"}},
	{Table: "TagMap", Subset: []string{"TagId", "LocationId"}},
	{Table: "TagMap", Subset: []string{"TagId", "PlaylistItemId"}},
	{Table: "TagMap", Subset: []string{"TagId", "Position"}},
}

// Constraints returns the catalog of domain-fixed unique constraints,
// for callers outside the package that need to re-check them post-merge
// (internal/verify's unique-constraint property).
func Constraints() []Constraint {
	return constraints
}

// textMergeColumns names the free-text columns that, on collision, get
// diff-merged (via internal/textdiff) instead of silently dropped.
var textMergeColumns = map[string][]string{
	"Bookmark": {"Title", "Snippet"},
	"InputField": {"Value"},
	"Note": {"Title", "Content"},
}

// ignoreColumnDedup lists the phase-C ignore-column dedup columns for
// the three domain tables that need it: drop duplicates over every
// column except the named one.
var ignoreColumnDedup = map[string]string{
	"TagMap":   "Position",
	"UserMark": "ColorIndex",
	"Location": "Title",
}
